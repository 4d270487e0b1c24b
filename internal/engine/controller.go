// Package engine keeps the local mirror of the tables collection in step
// with the store and applies the operator's order edits to the selected
// table.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"

	log "github.com/sirupsen/logrus"

	"table-status-backend/internal/confirm"
	"table-status-backend/internal/menu"
	"table-status-backend/internal/model"
	"table-status-backend/internal/notice"
	"table-status-backend/internal/order"
	"table-status-backend/internal/parse"
	"table-status-backend/internal/store"
)

var (
	// ErrNoSelection is returned by operations that need a selected table.
	ErrNoSelection = errors.New("no table selected")
	// ErrEmptyOrder is returned when checking out a table without an order.
	ErrEmptyOrder = errors.New("table has no order to check out")
)

// Operator-facing messages.
const (
	msgSelectTable  = "Selecione uma mesa e aguarde a inicialização."
	msgStreamFailed = "Erro ao carregar dados das mesas."
	msgSaved        = "Pedido salvo com sucesso!"
	msgSaveFailed   = "Erro ao salvar pedido. Tente novamente."
	msgCleared      = "Pedido limpo e mesa liberada!"
	msgClearFailed  = "Erro ao limpar pedido. Tente novamente."
	msgNothingToPay = "Não há pedido para fechar nesta mesa."
	msgAskClear     = "Tem certeza que deseja limpar o pedido desta mesa?"
	msgConfirmBusy  = "Já existe uma confirmação pendente."
)

// Notices receives the operator-facing outcome of each action.
type Notices interface {
	Success(msg string) notice.Notice
	Error(msg string) notice.Notice
}

// Confirmer asks the operator a yes/no question and waits for the answer.
type Confirmer interface {
	Request(ctx context.Context, message string) (bool, error)
}

// FreedTableSink is told about tables that went from occupied to available.
type FreedTableSink interface {
	Dispatch(tableID string)
}

// Options wires a Controller to its collaborators. Store, Collection,
// Menu, Notices and Confirmer are required.
type Options struct {
	Store      store.Store
	Collection string
	Menu       *menu.Menu
	Notices    Notices
	Confirmer  Confirmer
	Formatter  *order.Formatter
	Signals    *Broadcaster
	Freed      FreedTableSink
}

// Receipt is the outcome of a checkout.
type Receipt struct {
	TableID   string  `json:"tableId"`
	Total     float64 `json:"total"`
	Confirmed bool    `json:"confirmed"`
}

// Controller owns the application state of one station: the mirror of the
// collection, the selected table and its order buffer. State transitions
// are serialized; store calls are made without holding the lock.
type Controller struct {
	st         store.Store
	collection string
	menu       *menu.Menu
	notices    Notices
	confirmer  Confirmer
	format     *order.Formatter
	signals    *Broadcaster
	freed      FreedTableSink

	mu        sync.Mutex
	mirror    []model.Table
	loaded    bool
	selected  string
	buffer    model.Order
	streamErr error
}

// New creates a controller. It does nothing until Start.
func New(opts Options) *Controller {
	if opts.Signals == nil {
		opts.Signals = NewBroadcaster()
	}
	if opts.Formatter == nil {
		opts.Formatter = order.NewFormatter("")
	}
	return &Controller{
		st:         opts.Store,
		collection: opts.Collection,
		menu:       opts.Menu,
		notices:    opts.Notices,
		confirmer:  opts.Confirmer,
		format:     opts.Formatter,
		signals:    opts.Signals,
		freed:      opts.Freed,
		buffer:     model.Order{},
	}
}

// Signals returns the broadcaster the controller emits on.
func (c *Controller) Signals() *Broadcaster {
	return c.signals
}

// Menu returns the static menu.
func (c *Controller) Menu() *menu.Menu {
	return c.menu
}

// Start subscribes to the collection, applies the first snapshot and keeps
// applying snapshots in the background until ctx ends or the stream fails.
func (c *Controller) Start(ctx context.Context) error {
	updates, err := c.st.Subscribe(ctx, c.collection)
	if err != nil {
		return fmt.Errorf("subscribe to %s: %w", c.collection, err)
	}

	first, ok := <-updates
	if !ok {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("subscribe to %s: %w", c.collection, err)
		}
		return fmt.Errorf("subscribe to %s: stream closed before the first snapshot", c.collection)
	}
	if first.Err != nil {
		return fmt.Errorf("initial snapshot of %s: %w", c.collection, first.Err)
	}
	c.ApplySnapshot(first.Tables)

	go func() {
		for u := range updates {
			if u.Err != nil {
				c.StreamFailed(u.Err)
				continue
			}
			c.ApplySnapshot(u.Tables)
		}
		log.WithField("collection", c.collection).Info("table subscription closed")
	}()

	log.WithFields(log.Fields{"collection": c.collection, "tables": len(first.Tables)}).Info("engine started")
	return nil
}

// ApplySnapshot replaces the mirror with tables and re-hydrates the buffer
// of the selected table from it.
func (c *Controller) ApplySnapshot(tables []model.Table) {
	next := make([]model.Table, len(tables))
	for i, t := range tables {
		next[i] = t.Clone()
	}
	parse.SortTables(next)

	c.mu.Lock()
	var freed []string
	if c.loaded {
		freed = freedTables(c.mirror, next)
	}
	c.mirror = next
	c.loaded = true
	hasSelection := c.selected != ""
	if hasSelection {
		c.buffer = orderOf(next, c.selected)
	}
	c.mu.Unlock()

	if hasSelection {
		c.signals.Emit(SignalTables, SignalOrder)
	} else {
		c.signals.Emit(SignalTables)
	}

	if c.freed != nil {
		for _, id := range freed {
			c.freed.Dispatch(id)
		}
	}
}

// StreamFailed records that the change stream ended with err. The mirror
// keeps its last good state.
func (c *Controller) StreamFailed(err error) {
	log.WithError(err).WithField("collection", c.collection).Error("table stream failed")
	c.mu.Lock()
	c.streamErr = err
	c.mu.Unlock()

	c.notices.Error(msgStreamFailed)
	c.signals.Emit(SignalStream, SignalNotice)
}

// SelectTable makes id the selected table and loads its persisted order
// into the buffer. Unknown ids select an empty order.
func (c *Controller) SelectTable(id string) {
	c.mu.Lock()
	c.selected = id
	c.buffer = orderOf(c.mirror, id)
	c.mu.Unlock()

	c.signals.Emit(SignalSelection, SignalOrder)
}

// AddItem adds one unit of a menu item to the buffer. Unknown items are
// ignored.
func (c *Controller) AddItem(itemID string) error {
	item, known := c.menu.Find(itemID)

	c.mu.Lock()
	if c.selected == "" {
		c.mu.Unlock()
		return c.reject(ErrNoSelection)
	}
	if !known {
		c.mu.Unlock()
		log.WithField("item_id", itemID).Debug("ignoring unknown menu item")
		return nil
	}
	c.buffer = order.AddItem(c.buffer, item)
	c.mu.Unlock()

	c.signals.Emit(SignalOrder)
	return nil
}

// RemoveItem takes amount units of an item off the buffer.
func (c *Controller) RemoveItem(itemID string, amount order.Amount) error {
	c.mu.Lock()
	if c.selected == "" {
		c.mu.Unlock()
		return c.reject(ErrNoSelection)
	}
	c.buffer = order.RemoveItem(c.buffer, itemID, amount)
	c.mu.Unlock()

	c.signals.Emit(SignalOrder)
	return nil
}

// Total is the total of the buffer.
func (c *Controller) Total() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return order.Total(c.buffer)
}

// SaveOrder persists the buffer and its derived status to the selected
// table. On failure the buffer is kept as it is.
func (c *Controller) SaveOrder(ctx context.Context) error {
	c.mu.Lock()
	id, lines := c.selected, c.buffer.Clone()
	c.mu.Unlock()
	if id == "" {
		return c.reject(ErrNoSelection)
	}

	status := order.StatusFor(lines)
	if err := c.st.MergeWrite(ctx, c.collection, id, store.OrderFields(lines, status)); err != nil {
		log.WithError(err).WithField("table_id", id).Error("failed to save order")
		c.notify(c.notices.Error, msgSaveFailed)
		return fmt.Errorf("save order for %s: %w", id, err)
	}

	log.WithFields(log.Fields{"table_id": id, "status": status, "lines": len(lines)}).Info("order saved")
	c.notify(c.notices.Success, msgSaved)
	return nil
}

// ClearOrder empties the selected table and marks it available, then
// empties the buffer.
func (c *Controller) ClearOrder(ctx context.Context) error {
	c.mu.Lock()
	id := c.selected
	c.mu.Unlock()
	if id == "" {
		return c.reject(ErrNoSelection)
	}
	return c.clearTable(ctx, id)
}

// RequestClear asks for confirmation and clears the table selected at the
// time of the request when the operator agrees. It reports whether the
// table was cleared.
func (c *Controller) RequestClear(ctx context.Context) (bool, error) {
	c.mu.Lock()
	id := c.selected
	c.mu.Unlock()
	if id == "" {
		return false, c.reject(ErrNoSelection)
	}

	ok, err := c.confirm(ctx, msgAskClear)
	if err != nil || !ok {
		return false, err
	}
	if err := c.clearTable(ctx, id); err != nil {
		return false, err
	}
	return true, nil
}

// Checkout closes the bill of the selected table. The order and total are
// taken from the mirror, so unsaved buffer edits are not billed and are
// discarded by the clear that follows confirmation.
func (c *Controller) Checkout(ctx context.Context) (Receipt, error) {
	c.mu.Lock()
	id := c.selected
	persisted := orderOf(c.mirror, id)
	c.mu.Unlock()
	if id == "" {
		return Receipt{}, c.reject(ErrNoSelection)
	}
	if persisted.IsEmpty() {
		c.notify(c.notices.Error, msgNothingToPay)
		return Receipt{}, ErrEmptyOrder
	}

	receipt := Receipt{TableID: id, Total: order.Total(persisted)}
	label := parse.Label(id)
	question := fmt.Sprintf("Confirmar fechamento da conta para Mesa %s? Total: %s", label, c.format.Money(receipt.Total))
	ok, err := c.confirm(ctx, question)
	if err != nil || !ok {
		return receipt, err
	}

	if err := c.clearTable(ctx, id); err != nil {
		return receipt, err
	}
	receipt.Confirmed = true
	log.WithFields(log.Fields{"table_id": id, "total": receipt.Total}).Info("checkout completed")
	c.notify(c.notices.Success, fmt.Sprintf("Conta da Mesa %s fechada. Total: %s.", label, c.format.Money(receipt.Total)))
	return receipt, nil
}

func (c *Controller) clearTable(ctx context.Context, id string) error {
	if err := c.st.MergeWrite(ctx, c.collection, id, store.OrderFields(model.Order{}, model.StatusAvailable)); err != nil {
		log.WithError(err).WithField("table_id", id).Error("failed to clear order")
		c.notify(c.notices.Error, msgClearFailed)
		return fmt.Errorf("clear order for %s: %w", id, err)
	}

	c.mu.Lock()
	stillSelected := c.selected == id
	if stillSelected {
		c.buffer = model.Order{}
	}
	c.mu.Unlock()

	log.WithField("table_id", id).Info("order cleared")
	if stillSelected {
		c.signals.Emit(SignalOrder)
	}
	c.notify(c.notices.Success, msgCleared)
	return nil
}

func (c *Controller) confirm(ctx context.Context, question string) (bool, error) {
	ok, err := c.confirmer.Request(ctx, question)
	if err != nil {
		log.WithError(err).Warn("confirmation not obtained")
		if errors.Is(err, confirm.ErrPending) {
			c.notify(c.notices.Error, msgConfirmBusy)
		}
		return false, fmt.Errorf("confirmation: %w", err)
	}
	return ok, nil
}

func (c *Controller) reject(err error) error {
	c.notify(c.notices.Error, msgSelectTable)
	return err
}

func (c *Controller) notify(post func(string) notice.Notice, msg string) {
	post(msg)
	c.signals.Emit(SignalNotice)
}

func orderOf(tables []model.Table, id string) model.Order {
	for _, t := range tables {
		if t.ID == id {
			return t.Order.Clone()
		}
	}
	return model.Order{}
}

func freedTables(prev, next []model.Table) []string {
	was := make(map[string]model.TableStatus, len(prev))
	for _, t := range prev {
		was[t.ID] = t.Status
	}
	var freed []string
	for _, t := range next {
		if was[t.ID] == model.StatusOccupied && t.Status == model.StatusAvailable {
			freed = append(freed, t.ID)
		}
	}
	return freed
}
