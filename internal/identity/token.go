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
	"encoding/base64"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const bearerTokenTTL = 60 * time.Second

// BearerToken builds a short-lived EdDSA JWT asserting that signer holds its
// DID, for use against the provider identified by audience.
func BearerToken(signer Signer, audience string) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodEdDSA, jwt.RegisteredClaims{
		Issuer:    signer.DID(),
		Audience:  jwt.ClaimStrings{audience},
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(bearerTokenTTL)),
		ID:        uuid.New().String(),
	})
	token.Header["kid"] = signer.KeyID()

	signingString, err := token.SigningString()
	if err != nil {
		return "", fmt.Errorf("unable to build bearer token: %w", err)
	}
	sig, err := signer.Sign([]byte(signingString))
	if err != nil {
		return "", fmt.Errorf("unable to sign bearer token: %w", err)
	}
	return signingString + "." + base64.RawURLEncoding.EncodeToString(sig), nil
}

// VerifyBearerToken validates a token produced by BearerToken and returns
// the holder DID.
func VerifyBearerToken(tokenString, audience string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		kid, _ := t.Header["kid"].(string)
		return ResolvePublicKey(kid)
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodEdDSA.Alg()}),
		jwt.WithAudience(audience),
		jwt.WithIssuedAt(),
	)
	if err != nil {
		return "", fmt.Errorf("invalid bearer token: %w", err)
	}
	return claims.Issuer, nil
}
