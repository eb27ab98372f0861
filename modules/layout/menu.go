// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package layout

import (
	"context"

	"github.com/olegiv/eventdesk/internal/i18n"
	"github.com/olegiv/eventdesk/internal/module"
	"github.com/olegiv/eventdesk/internal/sidemenu"
)

// Side menu section keys contributed by the module.
const (
	MenuKeyLayout = "layout"
	MenuKeyMenu   = "menu"
)

// sidemenuEntry returns a side-menu hook handler contributing key. The item
// is visible only to users who may modify the event, and its label is
// translated into the requested language. URL resolution errors are
// returned unchanged.
func (m *Module) sidemenuEntry(key, label, route string) module.HookFunc {
	return func(_ context.Context, data any) (any, error) {
		req, err := sidemenu.RequestFrom(data)
		if err != nil {
			return nil, err
		}

		url, err := m.ctx.Routes.EventURL(route, req.Event.ID)
		if err != nil {
			return nil, err
		}

		return sidemenu.Entry{
			Key:  key,
			Item: sidemenu.NewItem(i18n.T(req.Lang(), label), url, req.Event.CanModify(req.User)),
		}, nil
	}
}
