package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"

	"github.com/Fazaarycode/Scalable-Ecommerce-Platform-React-Firebase-GraphQL/internal/domain/model"
	repo "github.com/Fazaarycode/Scalable-Ecommerce-Platform-React-Firebase-GraphQL/internal/repository"
)

const (
	defaultAdminListLimit = 50
	maxAdminListLimit     = 100
)

type AdminOrderUsecase struct {
	store  repo.Store
	events EventPublisher
	ids    IDGenerator
	clock  Clock
	log    *slog.Logger
}

func NewAdminOrderUsecase(d OrderDeps) *AdminOrderUsecase {
	u := &AdminOrderUsecase{
		store:  d.Store,
		events: d.Events,
		ids:    d.IDs,
		clock:  d.Clock,
		log:    d.Logger,
	}
	if u.events == nil {
		u.events = nopPublisher{}
	}
	if u.ids == nil {
		u.ids = UUIDGenerator{}
	}
	if u.clock == nil {
		u.clock = SystemClock{}
	}
	if u.log == nil {
		u.log = slog.New(slog.DiscardHandler)
	}
	return u
}

// 一覧の条件。Page/Limit が 0 ならデフォルト。
type AdminOrderListInput struct {
	Status string
	UserID string
	Page   int
	Limit  int
}

// List は全ユーザーの注文を新しい順に返す（status / user_id で絞り込み）。
func (u *AdminOrderUsecase) List(ctx context.Context, actor model.Actor, in AdminOrderListInput) ([]model.Order, error) {
	if err := requireAdmin(actor); err != nil {
		return []model.Order{}, err
	}

	page, limit := in.Page, in.Limit
	if page == 0 {
		page = 1
	}
	if limit == 0 {
		limit = defaultAdminListLimit
	}
	if page < 1 {
		return []model.Order{}, NewAppError(KindInvalidInput, "invalid page")
	}
	if limit < 1 || limit > maxAdminListLimit {
		return []model.Order{}, NewAppError(KindInvalidInput, "invalid limit")
	}

	f := repo.OrderListFilter{
		UserID: strings.TrimSpace(in.UserID),
		Page:   page,
		Limit:  limit,
	}
	if strings.TrimSpace(in.Status) != "" {
		st, ok := model.ParseOrderStatus(in.Status)
		if !ok {
			return []model.Order{}, NewAppError(KindInvalidStatus, "invalid status")
		}
		f.Status = st
	}

	orders, err := u.store.Orders().List(ctx, f)
	if err != nil {
		return []model.Order{}, storeUnavailable(err)
	}
	return orders, nil
}

// UpdateStatus はステータスを進める。同じステータスなら何もしない。
func (u *AdminOrderUsecase) UpdateStatus(ctx context.Context, actor model.Actor, orderID, status string) (model.Order, error) {
	if err := requireAdmin(actor); err != nil {
		return model.Order{}, err
	}
	next, ok := model.ParseOrderStatus(status)
	if !ok {
		return model.Order{}, NewAppError(KindInvalidStatus, "invalid status")
	}
	return u.transition(ctx, actor, orderID, next, model.AuditActionUpdateOrderStatus)
}

// Cancel は cancelled への遷移。
func (u *AdminOrderUsecase) Cancel(ctx context.Context, actor model.Actor, orderID string) (model.Order, error) {
	if err := requireAdmin(actor); err != nil {
		return model.Order{}, err
	}
	return u.transition(ctx, actor, orderID, model.OrderStatusCancelled, model.AuditActionCancelOrder)
}

type statusAudit struct {
	Status model.OrderStatus `json:"status"`
}

func (u *AdminOrderUsecase) transition(ctx context.Context, actor model.Actor, orderID string, next model.OrderStatus, action model.AuditAction) (model.Order, error) {
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return model.Order{}, errOrderNotFound
	}

	var (
		out     model.Order
		before  model.OrderStatus
		changed bool
	)

	err := u.store.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().FindByID(ctx, orderID)
		if errors.Is(err, repo.ErrNotFound) {
			return errOrderNotFound
		}
		if err != nil {
			return storeUnavailable(err)
		}

		// すでに同じなら何もしない
		if o.Status == next {
			out = o
			return nil
		}
		if !o.Status.CanTransitionTo(next) {
			return NewAppError(KindInvalidTransition, "cannot change "+string(o.Status)+" order to "+string(next))
		}

		now := u.clock.Now()
		if err := r.Orders().UpdateStatus(ctx, orderID, o.Status, next, now); err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return errOrderNotFound
			}
			if errors.Is(err, repo.ErrConflict) {
				return errOrderStatusConflict
			}
			return storeUnavailable(err)
		}

		// 監査ログ
		beforeJSON, _ := json.Marshal(statusAudit{Status: o.Status})
		afterJSON, _ := json.Marshal(statusAudit{Status: next})
		if err := r.AuditLogs().Create(ctx, model.AuditLog{
			ID:           u.ids.NewID(),
			ActorUserID:  actor.UserID,
			Action:       action,
			ResourceType: model.AuditResourceOrder,
			ResourceID:   orderID,
			BeforeJSON:   string(beforeJSON),
			AfterJSON:    string(afterJSON),
			CreatedAt:    now,
		}); err != nil {
			return storeUnavailable(err)
		}

		before = o.Status
		o.Status = next
		o.UpdatedAt = now
		out = o
		changed = true
		return nil
	})
	if err != nil {
		if _, ok := AsAppError(err); ok {
			return model.Order{}, err
		}
		return model.Order{}, storeUnavailable(err)
	}

	if changed {
		publishEvent(ctx, u.events, u.log, model.OrderEvent{
			Type:           model.EventOrderStatusChanged,
			OrderID:        out.ID,
			UserID:         out.UserID,
			Status:         out.Status,
			PreviousStatus: before,
			Total:          out.Total,
			ActorUserID:    actor.UserID,
			OccurredAt:     out.UpdatedAt,
		})
	}
	return out, nil
}

// AuditLogs は管理者操作の履歴を返す。
func (u *AdminOrderUsecase) AuditLogs(ctx context.Context, actor model.Actor, f repo.AuditLogFilter) ([]model.AuditLog, error) {
	if err := requireAdmin(actor); err != nil {
		return []model.AuditLog{}, err
	}
	if f.Limit == 0 {
		f.Limit = defaultAdminListLimit
	}
	if f.Limit < 1 || f.Limit > maxAdminListLimit || f.Offset < 0 {
		return []model.AuditLog{}, NewAppError(KindInvalidInput, "invalid paging")
	}

	logs, err := u.store.AuditLogs().List(ctx, f)
	if err != nil {
		return []model.AuditLog{}, storeUnavailable(err)
	}
	return logs, nil
}
