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

package database

const (
	// User queries
	queryGetActiveUsers = `
		SELECT id, name, email, did, credentials, created_at, updated_at
		FROM users
		WHERE active = 1
		ORDER BY created_at`

	queryInsertUser = `
		INSERT OR IGNORE INTO users (id, name, email) VALUES (?, ?, ?)`

	queryGetUserById = `
		SELECT id, name, email, did, credentials, created_at, updated_at
		FROM users
		WHERE id = ? AND active = 1`

	queryGetUserByEmail = `
		SELECT id, name, email, did, credentials, created_at, updated_at
		FROM users
		WHERE email = ? AND active = 1`

	queryUpdateUserDID = `
		UPDATE users SET did = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND active = 1`

	queryGetUserCredentials = `
		SELECT credentials FROM users WHERE id = ? AND active = 1`

	queryUpdateUserCredentials = `
		UPDATE users SET credentials = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND active = 1`

	queryUserExists = `
		SELECT 1 FROM users WHERE id = ? AND active = 1`

	// Transaction record queries
	queryInsertRecord = `
		INSERT INTO transaction_records
			(user_id, reference, from_party, to_party, type, amount, currency_code, timestamp, status, narration, liquidity_provider)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	queryUpdateRecordStatus = `
		UPDATE transaction_records
		SET status = ?, updated_at = ?
		WHERE user_id = ? AND reference = ?`

	querySelectRecord = `
		SELECT reference, from_party, to_party, type, amount, currency_code, timestamp, status, narration, liquidity_provider, updated_at
		FROM transaction_records`

	queryGetRecord = querySelectRecord + `
		WHERE user_id = ? AND reference = ?`

	queryGetRecords = querySelectRecord + `
		WHERE user_id = ?
		ORDER BY timestamp DESC, rowid DESC`

	// Rating queries
	queryInsertUserRating = `
		INSERT INTO user_ratings (user_id, provider_did, rating, timestamp) VALUES (?, ?, ?, ?)`

	queryDeleteUserRating = `
		DELETE FROM user_ratings WHERE id = (
			SELECT id FROM user_ratings
			WHERE user_id = ? AND provider_did = ? AND rating = ? AND timestamp = ?
			ORDER BY id DESC LIMIT 1)`

	queryGetUserRatings = `
		SELECT provider_did, rating, timestamp
		FROM user_ratings
		WHERE user_id = ?
		ORDER BY timestamp, id`

	querySelectReputation = `
		SELECT provider_did, ratings, total_ratings, average_rating, version, created_at, updated_at
		FROM provider_reputations`

	queryGetReputation = querySelectReputation + `
		WHERE provider_did = ?`

	queryListReputations = querySelectReputation + `
		ORDER BY provider_did`

	queryInsertReputation = `
		INSERT INTO provider_reputations (provider_did, ratings, total_ratings, average_rating, version, created_at, updated_at)
		VALUES (?, ?, ?, ?, 1, ?, ?)`

	queryUpdateReputation = `
		UPDATE provider_reputations
		SET ratings = ?, total_ratings = ?, average_rating = ?, version = version + 1, updated_at = ?
		WHERE provider_did = ? AND version = ?`
)
