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
	"strings"

	"wallet-exchange-go/internal/models"
)

type Outcome string

const (
	OutcomeCompleted Outcome = "completed"
	OutcomeExpired   Outcome = "expired"
	OutcomeCancelled Outcome = "cancelled"
	OutcomeFailed    Outcome = "failed"
)

// ClassifyCloseOutcome derives a display outcome from the free-text close
// reason. Best effort only: reasons are provider specific and carry no
// protocol guarantee.
func ClassifyCloseOutcome(closeMsg *models.Message) Outcome {
	if closeMsg == nil || closeMsg.Close == nil {
		return OutcomeFailed
	}
	reason := strings.ToLower(closeMsg.Close.Reason)
	switch {
	case strings.Contains(reason, "complete"), strings.Contains(reason, "success"):
		return OutcomeCompleted
	case strings.Contains(reason, "expired"):
		return OutcomeExpired
	case strings.Contains(reason, "cancelled"):
		return OutcomeCancelled
	default:
		return OutcomeFailed
	}
}
