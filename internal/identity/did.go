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

package identity

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/decred/base58"
)

const didKeyPrefix = "did:key:z"

// ed25519-pub multicodec prefix
var ed25519Multicodec = []byte{0xed, 0x01}

var ErrUnsupportedDID = errors.New("unsupported did")

// Signer is a DID that can sign on behalf of its holder
type Signer interface {
	DID() string
	KeyID() string
	Sign(payload []byte) ([]byte, error)
}

// BearerDID is a did:key identity holding its Ed25519 private key
type BearerDID struct {
	did string
	key ed25519.PrivateKey
}

var _ Signer = (*BearerDID)(nil)

// NewBearerDID creates a fresh did:key identity
func NewBearerDID() (*BearerDID, error) {
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("unable to generate key: %w", err)
	}
	return FromPrivateKey(priv), nil
}

// FromPrivateKey wraps an existing Ed25519 key
func FromPrivateKey(priv ed25519.PrivateKey) *BearerDID {
	pub := priv.Public().(ed25519.PublicKey)
	return &BearerDID{did: EncodeDIDKey(pub), key: priv}
}

func (b *BearerDID) DID() string   { return b.did }
func (b *BearerDID) KeyID() string { return b.did + "#0" }

func (b *BearerDID) Sign(payload []byte) ([]byte, error) {
	return ed25519.Sign(b.key, payload), nil
}

func (b *BearerDID) PublicKey() ed25519.PublicKey {
	return b.key.Public().(ed25519.PublicKey)
}

// EncodeDIDKey renders an Ed25519 public key as a did:key identifier
func EncodeDIDKey(pub ed25519.PublicKey) string {
	buf := make([]byte, 0, len(ed25519Multicodec)+len(pub))
	buf = append(buf, ed25519Multicodec...)
	buf = append(buf, pub...)
	return didKeyPrefix + base58.Encode(buf)
}

// ResolvePublicKey extracts the Ed25519 key embedded in a did:key. A key id
// with a fragment ("did:key:z...#0") is accepted.
func ResolvePublicKey(did string) (ed25519.PublicKey, error) {
	if i := strings.IndexByte(did, '#'); i >= 0 {
		did = did[:i]
	}
	if !strings.HasPrefix(did, didKeyPrefix) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedDID, did)
	}
	raw := base58.Decode(strings.TrimPrefix(did, didKeyPrefix))
	if len(raw) != len(ed25519Multicodec)+ed25519.PublicKeySize ||
		raw[0] != ed25519Multicodec[0] || raw[1] != ed25519Multicodec[1] {
		return nil, fmt.Errorf("%w: %s is not an ed25519 did:key", ErrUnsupportedDID, did)
	}
	return ed25519.PublicKey(raw[len(ed25519Multicodec):]), nil
}

// Resolvable reports whether the key of did can be resolved locally
func Resolvable(did string) bool {
	return strings.HasPrefix(did, didKeyPrefix)
}

// Verify checks sig over payload against the key of did
func Verify(did string, payload, sig []byte) error {
	pub, err := ResolvePublicKey(did)
	if err != nil {
		return err
	}
	if !ed25519.Verify(pub, payload, sig) {
		return fmt.Errorf("invalid signature for %s", did)
	}
	return nil
}

// PortableDID is the exportable form of a BearerDID, stored on the user
type PortableDID struct {
	URI        string `json:"uri"`
	PrivateKey string `json:"privateKey"`
}

func (b *BearerDID) Export() (string, error) {
	out, err := json.Marshal(PortableDID{
		URI:        b.did,
		PrivateKey: base64.RawURLEncoding.EncodeToString(b.key.Seed()),
	})
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// Import restores a BearerDID exported with Export
func Import(portable string) (*BearerDID, error) {
	var p PortableDID
	if err := json.Unmarshal([]byte(portable), &p); err != nil {
		return nil, fmt.Errorf("invalid portable did: %w", err)
	}
	seed, err := base64.RawURLEncoding.DecodeString(p.PrivateKey)
	if err != nil || len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("invalid portable did private key")
	}
	b := FromPrivateKey(ed25519.NewKeyFromSeed(seed))
	if p.URI != "" && p.URI != b.did {
		return nil, fmt.Errorf("portable did uri %s does not match key", p.URI)
	}
	return b, nil
}
