// Package dispatch orchestrates one wallet action: validate, record,
// resolve credentials, sign, relay, respond. The store write always
// happens before the upstream call so every attempt leaves an audit
// record, and duplicates short-circuit before any second financial
// effect.
package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/Ashenafi-pixel/gamecrafter-wallet-bridge/events"
	"github.com/Ashenafi-pixel/gamecrafter-wallet-bridge/metrics"
	"github.com/Ashenafi-pixel/gamecrafter-wallet-bridge/session"
	"github.com/Ashenafi-pixel/gamecrafter-wallet-bridge/signer"
	"github.com/Ashenafi-pixel/gamecrafter-wallet-bridge/txstore"
	"github.com/Ashenafi-pixel/gamecrafter-wallet-bridge/upstream"
)

// Request is the inbound wallet-action payload from the game engine.
// Amount, quantity and finished are pointers so "absent" and "zero" stay
// distinguishable for validation.
type Request struct {
	Action        string   `json:"action" validate:"required,oneof=balance bet win refund"`
	PlayerID      string   `json:"player_id" validate:"required"`
	Amount        *float64 `json:"amount" validate:"required_unless=Action balance"`
	Currency      string   `json:"currency" validate:"required"`
	GameUUID      string   `json:"game_uuid" validate:"required_unless=Action balance"`
	TransactionID string   `json:"transaction_id" validate:"required_unless=Action balance"`
	SessionID     string   `json:"session_id" validate:"required"`
	Type          string   `json:"type" validate:"required_unless=Action balance"`
	FreespinID    string   `json:"freespin_id,omitempty"`
	Quantity      *int     `json:"quantity,omitempty"`
	RoundID       string   `json:"round_id,omitempty"`
	Finished      *bool    `json:"finished,omitempty"`
}

// Error carries the HTTP-equivalent status and, for validation failures,
// the per-field rule that failed.
type Error struct {
	Status  int
	Message string
	Fields  map[string]string
}

func (e *Error) Error() string { return e.Message }

// Policy holds validation knobs that differ between deployments.
// Historical services disagree on whether a zero-amount bet is legal, so
// it is configuration rather than a hardcoded rule.
type Policy struct {
	AllowZeroBet bool
}

type Store interface {
	Record(ctx context.Context, tx *txstore.Transaction) (txstore.RecordResult, error)
}

type Relay interface {
	Forward(ctx context.Context, url string, body []byte, contentType, signature string) ([]byte, error)
}

type Publisher interface {
	Publish(ctx context.Context, evt events.TransactionRecorded) error
}

// Options carries the optional collaborators.
type Options struct {
	Policy    Policy
	Publisher Publisher
	Metrics   *metrics.Set
}

type Dispatcher struct {
	log        *zap.Logger
	store      Store
	sessions   session.Resolver
	serializer signer.Serializer
	relay      Relay
	policy     Policy
	publisher  Publisher
	metrics    *metrics.Set
	validate   *validatorWrapper
}

func New(log *zap.Logger, store Store, sessions session.Resolver, serializer signer.Serializer, relay Relay, opts Options) *Dispatcher {
	return &Dispatcher{
		log:        log,
		store:      store,
		sessions:   sessions,
		serializer: serializer,
		relay:      relay,
		policy:     opts.Policy,
		publisher:  opts.Publisher,
		metrics:    opts.Metrics,
		validate:   newValidator(),
	}
}

// Dispatch handles one inbound action end to end and returns the
// response body to relay to the caller. Errors are always *Error.
func (d *Dispatcher) Dispatch(ctx context.Context, req *Request) ([]byte, error) {
	if verr := d.validateRequest(req); verr != nil {
		d.count(req.Action, "rejected")
		return nil, verr
	}

	res, err := d.store.Record(ctx, req.transaction())
	if err != nil {
		d.log.Error("store record failed",
			zap.String("action", req.Action),
			zap.String("transaction_id", req.TransactionID),
			zap.Error(err))
		d.count(req.Action, "error")
		return nil, &Error{Status: 500, Message: "internal server error"}
	}

	if res.Duplicate {
		// Same (transaction_id, action) already recorded: no second
		// financial effect, answer from the ledger without relaying.
		d.log.Info("duplicate transaction short-circuited",
			zap.String("action", req.Action),
			zap.String("transaction_id", req.TransactionID))
		d.count(req.Action, "duplicate")
		body, _ := json.Marshal(map[string]any{
			"balance":        res.Balance,
			"transaction_id": req.TransactionID,
		})
		return body, nil
	}

	d.publish(req, res)

	creds, err := d.sessions.Resolve(ctx, req.PlayerID)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			d.count(req.Action, "session_not_found")
			return nil, &Error{Status: 404, Message: "session not found"}
		}
		d.log.Error("session resolve failed", zap.String("player_id", req.PlayerID), zap.Error(err))
		d.count(req.Action, "error")
		return nil, &Error{Status: 500, Message: "internal server error"}
	}

	body, err := d.serializer.Marshal(req.params(creds.UserID))
	if err != nil {
		d.log.Error("payload serialization failed", zap.Error(err))
		d.count(req.Action, "error")
		return nil, &Error{Status: 500, Message: "internal server error"}
	}
	sig := signer.Sign(body, creds.AuthToken)

	start := time.Now()
	respBody, err := d.relay.Forward(ctx, creds.ClientURL, body, d.serializer.ContentType(), sig)
	if d.metrics != nil {
		d.metrics.UpstreamSeconds.Observe(time.Since(start).Seconds())
	}
	if err != nil {
		// The record is already written with its pre-relay balance, so
		// the local ledger may now diverge from upstream truth.
		d.log.Warn("relay failed after record was written",
			zap.String("action", req.Action),
			zap.String("transaction_id", req.TransactionID),
			zap.Error(err))
		if errors.Is(err, upstream.ErrTimeout) {
			d.count(req.Action, "timeout")
			return nil, &Error{Status: 504, Message: "upstream not responding"}
		}
		d.count(req.Action, "error")
		return nil, &Error{Status: 500, Message: "internal server error"}
	}

	d.count(req.Action, "ok")
	return respBody, nil
}

func (d *Dispatcher) count(action, outcome string) {
	if d.metrics == nil {
		return
	}
	if action == "" {
		action = "unknown"
	}
	d.metrics.Requests.WithLabelValues(action, outcome).Inc()
}

// publish emits the recorded transaction to the event stream without ever
// blocking or failing the request.
func (d *Dispatcher) publish(req *Request, res txstore.RecordResult) {
	if d.publisher == nil {
		return
	}
	evt := events.TransactionRecorded{
		RecordID:      res.RecordID,
		Action:        req.Action,
		PlayerID:      req.PlayerID,
		Amount:        req.Amount,
		Currency:      req.Currency,
		TransactionID: req.TransactionID,
		Balance:       res.Balance,
		RecordedAt:    time.Now().UTC(),
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := d.publisher.Publish(ctx, evt); err != nil {
			d.log.Warn("event publish failed", zap.String("record_id", evt.RecordID), zap.Error(err))
		}
	}()
}

func (d *Dispatcher) validateRequest(req *Request) *Error {
	fields := d.validate.fieldErrors(req)

	if req.Amount != nil && *req.Amount < 0 {
		fields["amount"] = "min"
	}
	if req.Action == txstore.ActionBet && !d.policy.AllowZeroBet {
		if req.Amount != nil && *req.Amount == 0 {
			fields["amount"] = "gt"
		}
	}
	if len(fields) == 0 {
		return nil
	}
	return &Error{Status: 400, Message: "validation failed", Fields: fields}
}

func (r *Request) transaction() *txstore.Transaction {
	return &txstore.Transaction{
		Action:        r.Action,
		PlayerID:      r.PlayerID,
		Amount:        r.Amount,
		Currency:      r.Currency,
		GameUUID:      r.GameUUID,
		TransactionID: r.TransactionID,
		SessionID:     r.SessionID,
		Type:          r.Type,
		FreespinID:    r.FreespinID,
		Quantity:      r.Quantity,
		RoundID:       r.RoundID,
		Finished:      r.Finished,
	}
}

// params flattens the request into the outbound payload. Values are
// strings so both wire encodings serialize them identically; empty params
// are dropped by the serializer.
func (r *Request) params(userID string) map[string]string {
	p := map[string]string{
		"action":         r.Action,
		"user_id":        userID,
		"player_id":      r.PlayerID,
		"currency":       r.Currency,
		"game_uuid":      r.GameUUID,
		"transaction_id": r.TransactionID,
		"session_id":     r.SessionID,
		"type":           r.Type,
		"freespin_id":    r.FreespinID,
		"round_id":       r.RoundID,
	}
	if r.Amount != nil {
		p["amount"] = strconv.FormatFloat(*r.Amount, 'f', -1, 64)
	}
	if r.Quantity != nil {
		p["quantity"] = strconv.Itoa(*r.Quantity)
	}
	if r.Finished != nil {
		p["finished"] = strconv.FormatBool(*r.Finished)
	}
	return p
}
