// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package layout

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olegiv/eventdesk/internal/module"
	"github.com/olegiv/eventdesk/internal/scheduler"
	"github.com/olegiv/eventdesk/internal/testutil"
)

// storeLogo writes a logo file no setting points at, aged by age.
func (f *fixture) storeLogo(t *testing.T, age time.Duration) string {
	t.Helper()

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 4, 4))))
	res, err := f.mod.logos.ProcessLogo(&buf)
	require.NoError(t, err)

	stamp := time.Now().Add(-age)
	require.NoError(t, os.Chtimes(res.FilePath, stamp, stamp))
	return res.Ref
}

func TestSweepOrphanLogos(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	inUse := f.uploadLogo(t, 50, 50)["logo"].(string)
	stamp := time.Now().Add(-2 * OrphanLogoGrace)
	require.NoError(t, os.Chtimes(f.logoFile(inUse), stamp, stamp))

	other := testutil.CreateEvent(t, f.ctx.DB, "Chemistry Days", f.creator.ID)
	require.NoError(t, f.mod.Settings().Set(ctx, other.ID, KeyLogo, nil))

	stale := f.storeLogo(t, 2*OrphanLogoGrace)
	fresh := f.storeLogo(t, time.Minute)

	removed, err := f.mod.SweepOrphanLogos(ctx, time.Now())
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	assert.FileExists(t, f.logoFile(inUse))
	assert.FileExists(t, f.logoFile(fresh), "recent uploads are kept")
	assert.NoFileExists(t, f.logoFile(stale))

	removed, err = f.mod.SweepOrphanLogos(ctx, time.Now().Add(2*OrphanLogoGrace))
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
	assert.NoFileExists(t, f.logoFile(fresh))
	assert.FileExists(t, f.logoFile(inUse))
}

func TestSweepOrphanLogosWithoutFiles(t *testing.T) {
	f := newFixture(t)

	removed, err := f.mod.SweepOrphanLogos(context.Background(), time.Now())
	require.NoError(t, err)
	assert.Zero(t, removed)
}

func TestSweepIsScheduled(t *testing.T) {
	sched := scheduler.New(testutil.TestLogger(), time.Minute)
	f := newFixture(t, func(c *module.Context) {
		c.Scheduler = sched
		c.Config.LogoSweepSchedule = "@hourly"
	})

	jobs := sched.List()
	require.Len(t, jobs, 1)
	assert.Equal(t, SweepJobName, jobs[0].Name)
	assert.Equal(t, "@hourly", jobs[0].Schedule)

	stale := f.storeLogo(t, 2*OrphanLogoGrace)
	require.NoError(t, sched.TriggerNow(SweepJobName))
	assert.NoFileExists(t, f.logoFile(stale))
}

func TestSweepDisabled(t *testing.T) {
	sched := scheduler.New(testutil.TestLogger(), 0)
	newFixture(t, func(c *module.Context) {
		c.Scheduler = sched
		c.Config.LogoSweepSchedule = "off"
	})

	assert.Empty(t, sched.List())
}
