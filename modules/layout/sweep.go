// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package layout

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// SweepJobName names the orphaned logo sweep in the scheduler.
const SweepJobName = "layout.sweep_orphan_logos"

// OrphanLogoGrace is how long an unreferenced logo file is kept. Uploads
// write the file before the setting, so fresh files are never swept.
const OrphanLogoGrace = time.Hour

// SweepOrphanLogos removes logo files that no event references and that
// are older than OrphanLogoGrace at now. It returns the number removed.
func (m *Module) SweepOrphanLogos(ctx context.Context, now time.Time) (int, error) {
	values, err := m.ctx.Store.ListEventSettingValues(ctx, Namespace, KeyLogo)
	if err != nil {
		return 0, fmt.Errorf("listing logo references: %w", err)
	}
	referenced := make(map[string]bool, len(values))
	for _, raw := range values {
		var ref *string
		if err := json.Unmarshal([]byte(raw), &ref); err != nil || ref == nil {
			continue
		}
		referenced[*ref] = true
	}

	logos, err := m.logos.ListLogos()
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, logo := range logos {
		if referenced[logo.Ref] || now.Sub(logo.ModTime) < OrphanLogoGrace {
			continue
		}
		if err := ctx.Err(); err != nil {
			return removed, err
		}
		if err := m.logos.DeleteLogo(logo.Ref); err != nil {
			return removed, err
		}
		removed++
	}

	if removed > 0 {
		m.ctx.Logger.Info("orphaned logos removed", "count", removed)
	}
	return removed, nil
}

// scheduleSweep adds the orphaned logo sweep to the scheduler, if any.
func (m *Module) scheduleSweep() error {
	if m.ctx.Scheduler == nil || !m.ctx.Config.LogoSweepEnabled() {
		return nil
	}
	return m.ctx.Scheduler.Add(SweepJobName, m.ctx.Config.LogoSweepSchedule, func(ctx context.Context) error {
		_, err := m.SweepOrphanLogos(ctx, time.Now())
		return err
	})
}
