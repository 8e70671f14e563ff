package payment

import (
	"context"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/mystore-sync/internal/notify"
	"github.com/angelmondragon/mystore-sync/internal/orders"
	"github.com/angelmondragon/mystore-sync/internal/remote"
	pkgerrors "github.com/angelmondragon/mystore-sync/pkg/errors"
	"github.com/angelmondragon/mystore-sync/pkg/logger"
)

// State is the orchestrator's position in the payment flow.
type State string

const (
	StateIdle          State = "idle"
	StateProcessing    State = "processing"
	StateIntentCreated State = "intent_created"
	StateCardAttached  State = "card_attached"
	StateSucceeded     State = "succeeded"
	StateFailed        State = "failed"
)

// Method is the selected payment method.
type Method string

const (
	MethodCOD  Method = "cod"
	MethodCard Method = "card"
)

// gateway is the slice of the payment gateway the orchestrator drives.
type gateway interface {
	CreateIntent(ctx context.Context, amount decimal.Decimal) (*remote.Intent, error)
	AttachCard(ctx context.Context, intentID string, card remote.CardDetails) error
	Confirm(ctx context.Context, intentID string) (*remote.ChargeResult, error)
}

var _ gateway = (*remote.GatewayClient)(nil)

// orderPlacer turns a confirmed payment into an order. Checkout's
// PlaceOrder satisfies it.
type orderPlacer interface {
	PlaceOrder(ctx context.Context, paymentMethod, transactionID string) (*orders.Order, error)
}

// Orchestrator sequences the payment flow: method selection, intent
// creation, card attachment, confirmation, and order placement. Every
// transition is announced through the notification sink.
type Orchestrator struct {
	gateway gateway
	placer  orderPlacer
	notify  notify.Sink
	logg    *logger.Logger

	mu      sync.Mutex
	state   State
	method  Method
	intent  *remote.Intent
	lastErr error
}

// NewOrchestrator wires the payment flow. The sink may be nil.
func NewOrchestrator(gw gateway, placer orderPlacer, sink notify.Sink, logg *logger.Logger) (*Orchestrator, error) {
	if gw == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "payment: gateway is required")
	}
	if placer == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "payment: order placer is required")
	}
	if logg == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "payment: logger is required")
	}
	return &Orchestrator{
		gateway: gw,
		placer:  placer,
		notify:  notify.OrDefault(sink),
		logg:    logg,
		state:   StateIdle,
	}, nil
}

// State returns the current flow state.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Method returns the selected payment method.
func (o *Orchestrator) Method() Method {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.method
}

// Intent returns the open payment intent, if any.
func (o *Orchestrator) Intent() *remote.Intent {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.intent == nil {
		return nil
	}
	intent := *o.intent
	return &intent
}

// LastError returns the error captured by the most recent failure.
func (o *Orchestrator) LastError() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.lastErr
}

func (o *Orchestrator) setState(s State) {
	o.mu.Lock()
	o.state = s
	o.mu.Unlock()
}

func (o *Orchestrator) fail(ctx context.Context, err error, title string) {
	o.mu.Lock()
	o.state = StateFailed
	o.lastErr = err
	o.mu.Unlock()
	o.logg.Error(ctx, "payment: "+title, err)
	o.notify.Error(ctx, title, err.Error())
}

// SelectMethod starts a payment attempt. COD succeeds immediately with
// no order created yet; card requests a gateway intent. The method can
// be re-selected after a failure.
func (o *Orchestrator) SelectMethod(ctx context.Context, method Method, amount decimal.Decimal) error {
	switch method {
	case MethodCOD:
		o.mu.Lock()
		o.state = StateSucceeded
		o.method = MethodCOD
		o.intent = nil
		o.lastErr = nil
		o.mu.Unlock()
		o.notify.Info(ctx, "Cash on delivery selected", "Confirm to place your order")
		return nil

	case MethodCard:
		o.mu.Lock()
		o.state = StateProcessing
		o.method = MethodCard
		o.lastErr = nil
		o.mu.Unlock()
		o.notify.Info(ctx, "Preparing card payment", "")

		intent, err := o.gateway.CreateIntent(ctx, amount)
		if err != nil {
			o.fail(ctx, err, "Could not start card payment")
			return err
		}
		o.mu.Lock()
		o.intent = intent
		o.state = StateIntentCreated
		o.mu.Unlock()
		o.notify.Info(ctx, "Card payment ready", "Enter your card details")
		return nil

	default:
		err := pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown payment method %q", method))
		o.fail(ctx, err, "Unsupported payment method")
		return err
	}
}

// AttachCard binds card details to the open intent. Failure keeps the
// intent so the attachment can be retried.
func (o *Orchestrator) AttachCard(ctx context.Context, card remote.CardDetails) error {
	o.mu.Lock()
	intent := o.intent
	o.mu.Unlock()
	if intent == nil {
		err := pkgerrors.New(pkgerrors.CodeStateConflict, "NO_INTENT")
		o.fail(ctx, err, "No payment in progress")
		return err
	}

	o.setState(StateProcessing)
	if err := o.gateway.AttachCard(ctx, intent.ID, card); err != nil {
		o.fail(ctx, err, "Card was not accepted")
		return err
	}

	o.setState(StateCardAttached)
	o.notify.Success(ctx, "Card accepted", "")
	return nil
}

// ConfirmCardPayment captures the charge and places the order. Any
// state with a live intent may confirm, so a declined charge can be
// retried without re-attaching the card. A failed charge never
// produces an order; a successful charge followed by a failed order
// placement surfaces the distinct paid-but-lost error for manual
// reconciliation.
func (o *Orchestrator) ConfirmCardPayment(ctx context.Context) (*orders.Order, error) {
	o.mu.Lock()
	intent := o.intent
	o.mu.Unlock()
	if intent == nil {
		err := pkgerrors.New(pkgerrors.CodeStateConflict, "NO_INTENT")
		o.fail(ctx, err, "No payment in progress")
		return nil, err
	}

	o.setState(StateProcessing)
	result, err := o.gateway.Confirm(ctx, intent.ID)
	if err != nil {
		o.fail(ctx, err, "Payment was declined")
		return nil, err
	}

	order, err := o.placer.PlaceOrder(ctx, string(MethodCard), result.TransactionID)
	if err != nil {
		lost := pkgerrors.Wrap(pkgerrors.CodePaidOrderLost, err,
			fmt.Sprintf("charge %s succeeded but order placement failed", result.TransactionID))
		o.fail(ctx, lost, "Payment went through but the order was not saved")
		return nil, lost
	}

	o.mu.Lock()
	o.state = StateSucceeded
	o.intent = nil
	o.mu.Unlock()
	o.notify.Success(ctx, "Payment complete", "Order "+order.ID+" placed")
	return order, nil
}

// SubmitCOD places the order with cash-on-delivery metadata.
func (o *Orchestrator) SubmitCOD(ctx context.Context) (*orders.Order, error) {
	o.mu.Lock()
	method := o.method
	o.mu.Unlock()
	if method != MethodCOD {
		err := pkgerrors.New(pkgerrors.CodeStateConflict, "cash on delivery is not selected")
		o.fail(ctx, err, "Select cash on delivery first")
		return nil, err
	}

	o.setState(StateProcessing)
	order, err := o.placer.PlaceOrder(ctx, string(MethodCOD), "")
	if err != nil {
		o.fail(ctx, err, "Order could not be placed")
		return nil, err
	}

	o.setState(StateSucceeded)
	o.notify.Success(ctx, "Order placed", "Pay on delivery for order "+order.ID)
	return order, nil
}

// Reset returns the orchestrator to idle, clearing method, intent, and
// captured error. Used when leaving checkout.
func (o *Orchestrator) Reset(ctx context.Context) {
	o.mu.Lock()
	o.state = StateIdle
	o.method = ""
	o.intent = nil
	o.lastErr = nil
	o.mu.Unlock()
	o.notify.Info(ctx, "Checkout reset", "")
}
