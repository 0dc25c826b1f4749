package dashboard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/example/staff-dashboard/internal/client"
	"github.com/example/staff-dashboard/internal/editlock"
	"github.com/example/staff-dashboard/internal/session"
)

// Kind classifies a failure for presentation.
type Kind string

const (
	KindAuth         Kind = "auth"
	KindNetwork      Kind = "network"
	KindLockConflict Kind = "lock_conflict"
	KindLockLost     Kind = "lock_lost"
	KindStorage      Kind = "storage"
	// KindRequest covers rejected requests such as validation failures.
	KindRequest Kind = "request"
)

var notificationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "dashboard_client_notifications_total",
		Help: "Notifications raised by the dashboard client, by kind.",
	},
	[]string{"kind"},
)

// Notification is a failure converted for the user.
type Notification struct {
	Kind    Kind
	Message string
	Err     error
	At      time.Time
}

// Notifier receives notifications. Implementations must not block for long.
type Notifier interface {
	Notify(ctx context.Context, n Notification)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, n Notification)

// Notify implements Notifier.
func (f NotifierFunc) Notify(ctx context.Context, n Notification) {
	f(ctx, n)
}

// LogNotifier writes notifications to a logger.
type LogNotifier struct {
	Logger *slog.Logger
}

// Notify implements Notifier.
func (l LogNotifier) Notify(ctx context.Context, n Notification) {
	logger := l.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.WarnContext(ctx, n.Message, "kind", string(n.Kind), "error", n.Err)
}

// Classify maps err onto the failure taxonomy.
func Classify(err error) Kind {
	var netErr net.Error
	switch {
	case errors.Is(err, editlock.ErrLockConflict):
		return KindLockConflict
	case errors.Is(err, editlock.ErrLockLost):
		return KindLockLost
	case errors.Is(err, client.ErrAuth),
		errors.Is(err, session.ErrIncompleteIdentity):
		return KindAuth
	case errors.Is(err, session.ErrStorage):
		return KindStorage
	case errors.Is(err, client.ErrNetwork),
		errors.Is(err, context.DeadlineExceeded),
		errors.As(err, &netErr):
		return KindNetwork
	default:
		return KindRequest
	}
}

func messageFor(kind Kind, err error) string {
	switch kind {
	case KindAuth:
		if errors.Is(err, session.ErrIncompleteIdentity) {
			return "サインイン情報が不完全です。管理者に連絡してください。"
		}
		var authErr *client.AuthError
		if errors.As(err, &authErr) && authErr.Message != "" && !authErr.Expired() {
			return authErr.Message
		}
		return "セッションの有効期限が切れました。再度サインインしてください。"
	case KindNetwork:
		return "サーバーに接続できません。しばらくしてから再試行してください。"
	case KindLockConflict:
		var conflict *editlock.ConflictError
		if errors.As(err, &conflict) {
			holder := conflict.HolderName
			if holder == "" {
				holder = conflict.Holder
			}
			return fmt.Sprintf("%s さんが編集中です。", holder)
		}
		return "このレコードは他のユーザーが編集中です。"
	case KindLockLost:
		return "編集ロックが失われました。保存すると他のユーザーの変更を上書きする可能性があります。"
	case KindStorage:
		return "セッションを端末に保存できませんでした。次回起動時に再度サインインが必要です。"
	default:
		var apiErr *client.APIError
		if errors.As(err, &apiErr) && apiErr.Message != "" {
			return apiErr.Message
		}
		return "リクエストを処理できませんでした。"
	}
}
