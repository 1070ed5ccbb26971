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

package sale

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Error kinds. Every rejected precondition is a *Error whose Kind is one of these,
// so callers can match with errors.Is.
var (
	ErrInvalidSession       = errors.New("invalid session")
	ErrInvalidBounds        = errors.New("invalid bounds")
	ErrNonAllocation        = errors.New("outside allocation window")
	ErrNonMinting           = errors.New("outside minting window")
	ErrInsufficientDeposits = errors.New("insufficient deposits")
	ErrMintingNotOver       = errors.New("minting not over")
	ErrInvalidCoordinator   = errors.New("invalid coordinator")
	ErrInvalidAmount        = errors.New("invalid amount")
	ErrSoldOut              = errors.New("supply exhausted")
	ErrSessionActive        = errors.New("session still active")
)

// Error is a precondition failure. The operation that returned it made no
// state change and moved no assets.
type Error struct {
	Kind      error
	Op        string
	SessionId int64

	// Window failures
	Now   int64
	Start int64
	End   int64

	// Balance failures
	Have decimal.Decimal
	Want decimal.Decimal

	Caller string
	Detail string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s session %d: %v: %s", e.Op, e.SessionId, e.Kind, e.Detail)
}

func (e *Error) Unwrap() error {
	return e.Kind
}

func windowError(kind error, op string, sessionId, now, start, end int64) *Error {
	return &Error{
		Kind:      kind,
		Op:        op,
		SessionId: sessionId,
		Now:       now,
		Start:     start,
		End:       end,
		Detail:    fmt.Sprintf("now=%d not in [%d, %d]", now, start, end),
	}
}

func balanceError(kind error, op string, sessionId int64, have, want decimal.Decimal, what string) *Error {
	return &Error{
		Kind:      kind,
		Op:        op,
		SessionId: sessionId,
		Have:      have,
		Want:      want,
		Detail:    fmt.Sprintf("%s: have %s, need %s", what, have, want),
	}
}

func coordinatorError(op string, sessionId int64, caller, coordinator string) *Error {
	return &Error{
		Kind:      ErrInvalidCoordinator,
		Op:        op,
		SessionId: sessionId,
		Caller:    caller,
		Detail:    fmt.Sprintf("caller %q is not coordinator %q", caller, coordinator),
	}
}

func sessionError(op string, sessionId int64) *Error {
	return &Error{
		Kind:      ErrInvalidSession,
		Op:        op,
		SessionId: sessionId,
		Detail:    "no such session",
	}
}

func boundsError(detail string) *Error {
	return &Error{
		Kind:   ErrInvalidBounds,
		Op:     "create",
		Detail: detail,
	}
}
