package locator

import (
	"context"
	"fmt"

	"github.com/pilotlab-dev/webpilot/pkg/core"
	"github.com/pilotlab-dev/webpilot/pkg/wire"
)

func (l *Locator) click(ctx context.Context, element string, point core.Point, clickCount int, modifiers []core.Modifier) error {
	return l.target.Call(ctx, wire.MethodInputClick, wire.ClickParams{
		PageID:     l.target.PageID(),
		Point:      point,
		Button:     core.ButtonLeft,
		ClickCount: clickCount,
		Modifiers:  modifiers,
	}, nil)
}

// Click resolves the reference, waits for the candidate to be visible, stable,
// enabled and receiving events at the action point, then performs a single
// left click.
func (l *Locator) Click(ctx context.Context, opts ...Options) error {
	o := firstOpts(opts)
	return l.run(ctx, o, action{
		name:    "click",
		needs:   gateNeeds{visible: true, stable: true, enabled: true},
		pointer: true,
		perform: func(ctx context.Context, element string, point core.Point) error {
			return l.click(ctx, element, point, 1, o.Modifiers)
		},
	})
}

// Dblclick performs a double click. If the first of the two primitive clicks
// triggers a navigation the call fails with ErrNavigationInterrupted and is
// not retried: double-click semantics are undefined once navigation
// interleaves.
func (l *Locator) Dblclick(ctx context.Context, opts ...Options) error {
	o := firstOpts(opts)
	return l.run(ctx, o, action{
		name:    "dblclick",
		needs:   gateNeeds{visible: true, stable: true, enabled: true},
		pointer: true,
		perform: func(ctx context.Context, element string, point core.Point) error {
			if err := l.click(ctx, element, point, 1, o.Modifiers); err != nil {
				return err
			}

			var nav wire.NavStateResult
			err := l.target.Call(ctx, wire.MethodPageNavState, wire.PageParams{
				PageID: l.target.PageID(),
			}, &nav)
			if err != nil {
				return err
			}
			if nav.State == wire.NavStatePending {
				return core.ErrNavigationInterrupted
			}

			return l.click(ctx, element, point, 2, o.Modifiers)
		},
	})
}

// Check ensures a checkbox or radio input is checked, clicking it if needed.
func (l *Locator) Check(ctx context.Context, opts ...Options) error {
	return l.ensureChecked(ctx, "check", true, firstOpts(opts))
}

// Uncheck ensures a checkbox input is unchecked, clicking it if needed.
func (l *Locator) Uncheck(ctx context.Context, opts ...Options) error {
	return l.ensureChecked(ctx, "uncheck", false, firstOpts(opts))
}

// SetChecked sets the checked state explicitly.
func (l *Locator) SetChecked(ctx context.Context, checked bool, opts ...Options) error {
	name := "uncheck"
	if checked {
		name = "check"
	}
	return l.ensureChecked(ctx, name, checked, firstOpts(opts))
}

func (l *Locator) ensureChecked(ctx context.Context, name string, desired bool, o Options) error {
	return l.run(ctx, o, action{
		name:    name,
		needs:   gateNeeds{visible: true, stable: true, enabled: true},
		pointer: true,
		perform: func(ctx context.Context, element string, point core.Point) error {
			snap, err := l.describe(ctx, element)
			if err != nil {
				return err
			}
			if snap.Checked == desired {
				return nil
			}

			if err := l.click(ctx, element, point, 1, o.Modifiers); err != nil {
				return err
			}

			snap, err = l.describe(ctx, element)
			if err != nil {
				return err
			}
			if snap.Checked != desired {
				return fmt.Errorf("clicking the checkbox did not change its state")
			}
			return nil
		},
	})
}

// Hover moves the pointer over the element.
func (l *Locator) Hover(ctx context.Context, opts ...Options) error {
	return l.run(ctx, firstOpts(opts), action{
		name:    "hover",
		needs:   gateNeeds{visible: true, stable: true},
		pointer: true,
		perform: func(ctx context.Context, element string, point core.Point) error {
			return l.target.Call(ctx, wire.MethodInputMove, wire.MoveParams{
				PageID: l.target.PageID(),
				Point:  point,
			}, nil)
		},
	})
}

// Tap performs a touch tap on the element.
func (l *Locator) Tap(ctx context.Context, opts ...Options) error {
	o := firstOpts(opts)
	return l.run(ctx, o, action{
		name:    "tap",
		needs:   gateNeeds{visible: true, stable: true, enabled: true},
		pointer: true,
		perform: func(ctx context.Context, element string, point core.Point) error {
			return l.target.Call(ctx, wire.MethodInputTap, wire.TapParams{
				PageID:    l.target.PageID(),
				Point:     point,
				Modifiers: o.Modifiers,
			}, nil)
		},
	})
}

// Fill sets the value of an input, textarea or contenteditable element
// wholesale.
func (l *Locator) Fill(ctx context.Context, value string, opts ...Options) error {
	return l.run(ctx, firstOpts(opts), action{
		name:  "fill",
		needs: gateNeeds{visible: true, enabled: true, editable: true},
		perform: func(ctx context.Context, element string, _ core.Point) error {
			return l.target.Call(ctx, wire.MethodDOMFill, wire.FillParams{
				PageID:    l.target.PageID(),
				ElementID: element,
				Value:     value,
			}, nil)
		},
	})
}

// Type focuses the element and types text character by character.
func (l *Locator) Type(ctx context.Context, text string, opts ...Options) error {
	return l.run(ctx, firstOpts(opts), action{
		name:  "type",
		needs: gateNeeds{visible: true, enabled: true, editable: true},
		perform: func(ctx context.Context, element string, _ core.Point) error {
			if err := l.focus(ctx, element); err != nil {
				return err
			}
			return l.target.Call(ctx, wire.MethodInputType, wire.TypeParams{
				PageID:    l.target.PageID(),
				ElementID: element,
				Text:      text,
			}, nil)
		},
	})
}

// Press focuses the element and presses a single key or chord, e.g. "Enter"
// or "Control+a".
func (l *Locator) Press(ctx context.Context, key string, opts ...Options) error {
	o := firstOpts(opts)
	return l.run(ctx, o, action{
		name:  "press",
		needs: gateNeeds{visible: true, enabled: true},
		perform: func(ctx context.Context, element string, _ core.Point) error {
			if err := l.focus(ctx, element); err != nil {
				return err
			}
			return l.target.Call(ctx, wire.MethodInputPress, wire.PressParams{
				PageID:    l.target.PageID(),
				ElementID: element,
				Key:       key,
				Modifiers: o.Modifiers,
			}, nil)
		},
	})
}

// Focus moves focus to the element. Only attachment is required.
func (l *Locator) Focus(ctx context.Context, opts ...Options) error {
	return l.run(ctx, firstOpts(opts), action{
		name: "focus",
		perform: func(ctx context.Context, element string, _ core.Point) error {
			return l.focus(ctx, element)
		},
	})
}

func (l *Locator) focus(ctx context.Context, element string) error {
	return l.target.Call(ctx, wire.MethodDOMFocus, wire.ElementParams{
		PageID:    l.target.PageID(),
		ElementID: element,
	}, nil)
}

// SelectOption selects the options with the given values in a <select>
// element and returns the values actually selected.
func (l *Locator) SelectOption(ctx context.Context, values []string, opts ...Options) ([]string, error) {
	var selected []string
	err := l.run(ctx, firstOpts(opts), action{
		name:  "selectOption",
		needs: gateNeeds{visible: true, enabled: true},
		perform: func(ctx context.Context, element string, _ core.Point) error {
			var res wire.SelectOptionResult
			err := l.target.Call(ctx, wire.MethodDOMSelectOption, wire.SelectOptionParams{
				PageID:    l.target.PageID(),
				ElementID: element,
				Values:    values,
			}, &res)
			if err != nil {
				return err
			}
			selected = res.Selected
			return nil
		},
	})
	return selected, err
}

// SelectText selects the element's text content.
func (l *Locator) SelectText(ctx context.Context, opts ...Options) error {
	return l.run(ctx, firstOpts(opts), action{
		name:  "selectText",
		needs: gateNeeds{visible: true},
		perform: func(ctx context.Context, element string, _ core.Point) error {
			return l.target.Call(ctx, wire.MethodDOMSelectText, wire.ElementParams{
				PageID:    l.target.PageID(),
				ElementID: element,
			}, nil)
		},
	})
}

// SetInputFiles attaches files to an input[type=file] element.
func (l *Locator) SetInputFiles(ctx context.Context, files []wire.FilePayload, opts ...Options) error {
	return l.run(ctx, firstOpts(opts), action{
		name:  "setInputFiles",
		needs: gateNeeds{enabled: true},
		perform: func(ctx context.Context, element string, _ core.Point) error {
			return l.target.Call(ctx, wire.MethodDOMSetFiles, wire.SetFilesParams{
				PageID:    l.target.PageID(),
				ElementID: element,
				Files:     files,
			}, nil)
		},
	})
}

// DispatchEvent fires a DOM event of the given type on the element. Only
// attachment is required.
func (l *Locator) DispatchEvent(ctx context.Context, eventType string, detail interface{}, opts ...Options) error {
	return l.run(ctx, firstOpts(opts), action{
		name: "dispatchEvent",
		perform: func(ctx context.Context, element string, _ core.Point) error {
			return l.target.Call(ctx, wire.MethodDOMDispatch, wire.DispatchParams{
				PageID:    l.target.PageID(),
				ElementID: element,
				Type:      eventType,
				Detail:    detail,
			}, nil)
		},
	})
}

// DragTo drags the element onto target. Both references re-resolve on every
// attempt; an ambiguous or empty target set is a wait condition like any
// other.
func (l *Locator) DragTo(ctx context.Context, target *Locator, opts ...Options) error {
	o := firstOpts(opts)
	return l.run(ctx, o, action{
		name:    "dragTo",
		needs:   gateNeeds{visible: true, stable: true},
		pointer: true,
		perform: func(ctx context.Context, element string, point core.Point) error {
			ids, err := target.resolve(ctx)
			if err != nil {
				return err
			}
			if len(ids) == 0 {
				return errNoCandidates
			}
			if len(ids) > 1 {
				return &tooManyError{count: len(ids)}
			}

			box, err := target.boundingBox(ctx, ids[0])
			if err != nil {
				return err
			}
			if box == nil || box.Empty() {
				return &predicateError{name: "visible"}
			}

			return l.target.Call(ctx, wire.MethodInputDrag, wire.DragParams{
				PageID:    l.target.PageID(),
				From:      point,
				To:        box.Center(),
				Modifiers: o.Modifiers,
			}, nil)
		},
	})
}

// ScrollIntoViewIfNeeded scrolls the element into view once its geometry is
// stable.
func (l *Locator) ScrollIntoViewIfNeeded(ctx context.Context, opts ...Options) error {
	return l.run(ctx, firstOpts(opts), action{
		name:  "scrollIntoViewIfNeeded",
		needs: gateNeeds{stable: true},
		perform: func(ctx context.Context, element string, _ core.Point) error {
			return l.target.Call(ctx, wire.MethodDOMScroll, wire.ElementParams{
				PageID:    l.target.PageID(),
				ElementID: element,
			}, nil)
		},
	})
}

// Screenshot captures the element as a PNG once it is visible and stable.
func (l *Locator) Screenshot(ctx context.Context, opts ...Options) ([]byte, error) {
	var data []byte
	err := l.run(ctx, firstOpts(opts), action{
		name:  "screenshot",
		needs: gateNeeds{visible: true, stable: true},
		perform: func(ctx context.Context, element string, _ core.Point) error {
			var res wire.ScreenshotResult
			err := l.target.Call(ctx, wire.MethodDOMScreenshot, wire.ElementParams{
				PageID:    l.target.PageID(),
				ElementID: element,
			}, &res)
			if err != nil {
				return err
			}
			data = res.Data
			return nil
		},
	})
	return data, err
}
