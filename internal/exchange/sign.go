/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package exchange

import (
	"encoding/base64"
	"fmt"

	"wallet-exchange-go/internal/identity"
	"wallet-exchange-go/internal/models"
)

// SignMessage stamps the sender and signs the message digest
func SignMessage(msg *models.Message, signer identity.Signer) error {
	msg.Metadata.From = signer.DID()
	digest, err := msg.Digest()
	if err != nil {
		return fmt.Errorf("unable to digest %s: %w", msg.Kind(), err)
	}
	sig, err := signer.Sign(digest)
	if err != nil {
		return fmt.Errorf("unable to sign %s: %w", msg.Kind(), err)
	}
	msg.Signature = base64.RawURLEncoding.EncodeToString(sig)
	return nil
}

// verifyReply checks a provider message. Senders whose DID cannot be
// resolved locally (did:dht) are accepted as delivered by their directory
// endpoint.
func verifyReply(msg models.Message) error {
	if !identity.Resolvable(msg.Metadata.From) {
		return nil
	}
	if err := VerifyMessage(msg); err != nil {
		return fmt.Errorf("%w: %s %s from %s failed verification: %v",
			models.ErrProtocolViolation, msg.Kind(), msg.Metadata.ID, msg.Metadata.From, err)
	}
	return nil
}

// VerifyMessage checks the signature against the sender's did:key
func VerifyMessage(msg models.Message) error {
	if msg.Signature == "" {
		return fmt.Errorf("%w: %s %s is unsigned", models.ErrProtocolViolation, msg.Kind(), msg.Metadata.ID)
	}
	sig, err := base64.RawURLEncoding.DecodeString(msg.Signature)
	if err != nil {
		return fmt.Errorf("%w: malformed signature: %v", models.ErrProtocolViolation, err)
	}
	digest, err := msg.Digest()
	if err != nil {
		return err
	}
	return identity.Verify(msg.Metadata.From, digest, sig)
}
