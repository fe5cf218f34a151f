package authapi

import (
	"context"
	"log/slog"
	"net"
)

// Audit events go to the structured log under the "audit" group.

func (h *Handler) auditLoginFailed(ctx context.Context, username string, ip net.IP, reason string) {
	h.audit(ctx, "auth.login.failed", slog.String("username", username), ipAttr(ip), slog.String("reason", reason))
}

func (h *Handler) auditLoginSuccess(ctx context.Context, userID, sessionID string, ip net.IP) {
	h.audit(ctx, "auth.login.success", slog.String("user_id", userID), slog.String("session_id", sessionID), ipAttr(ip))
}

func (h *Handler) auditLoginRateLimited(ctx context.Context, username string, ip net.IP) {
	h.audit(ctx, "auth.login.rate_limited", slog.String("username", username), ipAttr(ip))
}

func (h *Handler) auditLogout(ctx context.Context, userID, sessionID string, ip net.IP) {
	h.audit(ctx, "auth.logout", slog.String("user_id", userID), slog.String("session_id", sessionID), ipAttr(ip))
}

func (h *Handler) audit(ctx context.Context, action string, attrs ...slog.Attr) {
	h.log.LogAttrs(ctx, slog.LevelInfo, action, slog.Attr{Key: "audit", Value: slog.GroupValue(attrs...)})
}

func ipAttr(ip net.IP) slog.Attr {
	if ip == nil {
		return slog.String("ip", "")
	}
	return slog.String("ip", ip.String())
}
