package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/example/staff-dashboard/internal/api"
	"github.com/example/staff-dashboard/internal/application"
)

var (
	errBadRequestBody      = errors.New("無効なリクエスト形式です。")
	errInvalidShiftID      = errors.New("無効なシフト ID です。")
	errInvalidTimeOffID    = errors.New("無効な休暇申請 ID です。")
	errInvalidEmail        = errors.New("無効なメールアドレスです。")
	errInvalidRecordID     = errors.New("無効なレコード ID です。")
	errInvalidDate         = errors.New("日付は YYYY-MM-DD 形式で指定してください。")
	errInvalidRange        = errors.New("期間の指定が正しくありません。")
	errMissingSessionToken = errors.New("認証トークンを指定してください")
)

type responder struct {
	logger *slog.Logger
}

func newResponder(logger *slog.Logger) responder {
	if logger == nil {
		logger = slog.Default()
	}
	return responder{logger: logger}
}

func (r responder) writeJSON(ctx context.Context, w http.ResponseWriter, status int, payload any) {
	if w == nil {
		return
	}

	if status == http.StatusNoContent || payload == nil {
		w.WriteHeader(status)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		r.loggerFor(ctx).ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

func (r responder) writeError(ctx context.Context, w http.ResponseWriter, status int, err error) {
	message := localizedStatusMessage(status)
	if err != nil {
		if msg := strings.TrimSpace(err.Error()); msg != "" {
			message = msg
		}
		r.loggerFor(ctx).ErrorContext(ctx, "request failed", "status", status, "error", err)
	}

	r.writeJSON(ctx, w, status, api.ErrorResponse{Error: message})
}

func (r responder) handleServiceError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		r.writeError(ctx, w, http.StatusInternalServerError, errors.New("unknown error"))
		return
	}

	var conflict *application.LockConflictError
	if errors.As(err, &conflict) {
		r.writeJSON(ctx, w, http.StatusConflict, api.LockConflictResponse{
			Error:      "このレコードは他のユーザーが編集中です。",
			ErrorCode:  api.CodeLockConflict,
			RecordID:   conflict.Lock.RecordID,
			Holder:     conflict.Lock.Holder,
			HolderName: conflict.Lock.HolderName,
			ExpiresAt:  conflict.Lock.ExpiresAt.UTC(),
		})
		return
	}

	switch {
	case errors.Is(err, application.ErrInvalidCredentials):
		r.writeJSON(ctx, w, http.StatusUnauthorized, api.ErrorResponse{
			ErrorCode: api.CodeInvalidCredentials,
			Error:     "認証情報を確認できませんでした。再度サインインしてください。",
		})
	case errors.Is(err, application.ErrSessionExpired):
		r.writeJSON(ctx, w, http.StatusUnauthorized, api.ErrorResponse{
			ErrorCode: api.CodeSessionExpired,
			Error:     "セッションの有効期限が切れました。再度サインインしてください。",
		})
	case errors.Is(err, application.ErrUnknownPerson):
		r.writeJSON(ctx, w, http.StatusForbidden, api.ErrorResponse{
			ErrorCode: api.CodeUnknownPerson,
			Error:     "このアカウントはスタッフ名簿に登録されていません。",
		})
	case errors.Is(err, application.ErrAccountDisabled):
		r.writeJSON(ctx, w, http.StatusForbidden, api.ErrorResponse{
			ErrorCode: api.CodeAccountDisabled,
			Error:     "このアカウントは無効化されています。",
		})
	case errors.Is(err, application.ErrUnauthorized):
		r.writeJSON(ctx, w, http.StatusForbidden, api.ErrorResponse{
			ErrorCode: api.CodeForbidden,
			Error:     "この操作を実行する権限がありません。",
		})
	case errors.Is(err, application.ErrLockNotHeld):
		r.writeJSON(ctx, w, http.StatusConflict, api.ErrorResponse{
			ErrorCode: api.CodeLockNotHeld,
			Error:     "編集ロックを保持していません。",
		})
	case errors.Is(err, application.ErrNotFound):
		r.writeJSON(ctx, w, http.StatusNotFound, api.ErrorResponse{Error: "指定されたリソースが見つかりません。"})
	default:
		var vErr *application.ValidationError
		if errors.As(err, &vErr) {
			r.writeJSON(ctx, w, http.StatusUnprocessableEntity, api.ErrorResponse{
				Error:  "入力内容に誤りがあります。",
				Errors: localizeValidationErrors(vErr),
			})
			return
		}

		r.loggerFor(ctx).ErrorContext(ctx, "unexpected service error", "error", err)
		r.writeJSON(ctx, w, http.StatusInternalServerError, api.ErrorResponse{Error: "サーバー内部でエラーが発生しました。"})
	}
}

func (r responder) loggerFor(ctx context.Context) *slog.Logger {
	if logger := LoggerFromContext(ctx); logger != nil {
		return logger
	}
	return r.logger
}

func localizedStatusMessage(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "リクエスト内容が正しくありません。"
	case http.StatusUnauthorized:
		return "認証が必要です。"
	case http.StatusForbidden:
		return "この操作を実行する権限がありません。"
	case http.StatusNotFound:
		return "指定されたリソースが見つかりません。"
	case http.StatusConflict:
		return "要求はリソースの現在の状態と競合しています。"
	case http.StatusUnprocessableEntity:
		return "入力内容に誤りがあります。"
	case http.StatusMethodNotAllowed:
		return "許可されていないメソッドです。"
	case http.StatusTooManyRequests:
		return "リクエストが多すぎます。しばらくしてから再試行してください。"
	default:
		return "サーバー内部でエラーが発生しました。"
	}
}

func localizeValidationErrors(vErr *application.ValidationError) map[string]string {
	if vErr == nil || len(vErr.FieldErrors) == 0 {
		return nil
	}

	translated := make(map[string]string, len(vErr.FieldErrors))
	for field, msg := range vErr.FieldErrors {
		translated[field] = translateValidationMessage(msg)
	}
	return translated
}

func translateValidationMessage(message string) string {
	switch message {
	case "email is required":
		return "メールアドレスは必須です。"
	case "email is invalid":
		return "メールアドレスの形式が不正です。"
	case "name is required":
		return "氏名は必須です。"
	case "agent is required":
		return "担当者は必須です。"
	case "agent is not on the roster":
		return "指定された担当者は名簿に登録されていません。"
	case "start is required":
		return "開始日時は必須です。"
	case "end is required":
		return "終了日時は必須です。"
	case "end must be after start":
		return "終了日時は開始日時より後である必要があります。"
	case "to must be after from", "a range with to after from is required":
		return "期間の終了は開始より後である必要があります。"
	case "status must be approved or denied":
		return "承認または却下を指定してください。"
	case "record id is required":
		return "レコード ID は必須です。"
	case "managers cannot revoke their own access":
		return "自分自身の管理者権限は取り消せません。"
	case "managers cannot remove themselves":
		return "自分自身を名簿から削除することはできません。"
	default:
		if strings.HasPrefix(message, "unknown channel") {
			return "存在しないチャネルが指定されています: " + strings.TrimSpace(strings.TrimPrefix(message, "unknown channel"))
		}
		if strings.HasPrefix(message, "shift must not exceed") {
			return "シフトの長さが上限を超えています: " + strings.TrimSpace(strings.TrimPrefix(message, "shift must not exceed"))
		}
		return message
	}
}
