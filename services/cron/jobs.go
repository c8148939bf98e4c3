package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/sahilchouksey/coursekart/model"
	"github.com/sahilchouksey/coursekart/utils/auth"
)

// ReconcileGrantPendingPayments retries enrollment grants for payments that
// verified but whose enrollment write failed. Runs every minute until each
// grant lands.
func (m *CronManager) ReconcileGrantPendingPayments() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	jobName := "reconcile_grant_pending"

	granted, err := m.checkout.ReconcileGrantPending(ctx)
	if err != nil {
		m.logJobError(jobName, fmt.Errorf("failed to reconcile parked payments: %w", err))
		return
	}

	if granted == 0 {
		m.logJobComplete(jobName, "No parked grants")
		return
	}

	m.logJobComplete(jobName, fmt.Sprintf("Granted %d parked enrollment(s)", granted))
}

// CleanupOldData prunes processed webhook events, expired token blacklist
// entries and stale cron job logs
func (m *CronManager) CleanupOldData() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	jobName := "cleanup_old_data"

	events := int64(0)
	if m.events != nil {
		deleted, err := m.events.DeleteProcessedBefore(ctx, time.Now().AddDate(0, 0, -30))
		if err != nil {
			m.logJobError(jobName, fmt.Errorf("failed to prune webhook events: %w", err))
			return
		}
		events = deleted
	}

	tokens, err := auth.NewBlacklistService(m.db).CleanupExpiredTokens(ctx)
	if err != nil {
		m.logJobError(jobName, fmt.Errorf("failed to prune token blacklist: %w", err))
		return
	}

	logs := m.db.WithContext(ctx).
		Where("created_at < ?", time.Now().AddDate(0, 0, -30)).
		Delete(&model.CronJobLog{})
	if logs.Error != nil {
		m.logJobError(jobName, fmt.Errorf("failed to prune cron logs: %w", logs.Error))
		return
	}

	m.logJobComplete(jobName, fmt.Sprintf("Pruned %d webhook event(s), %d blacklisted token(s), %d cron log(s)",
		events, tokens, logs.RowsAffected))
}
