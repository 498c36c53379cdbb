package mockdom

import (
	"encoding/json"

	"github.com/pilotlab-dev/webpilot/pkg/wire"
)

var pngMagic = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}

// dispatchElement handles the dom.* and input.* methods. Runs under the
// server lock.
func (s *Server) dispatchElement(method string, raw json.RawMessage) (interface{}, *callError) {
	switch method {
	case wire.MethodDOMDescribe:
		var params wire.ElementParams
		if err := json.Unmarshal(raw, &params); err != nil {
			return nil, badRequest("bad params: %v", err)
		}
		_, el, cerr := s.liveElement(params.PageID, params.ElementID)
		if cerr != nil {
			return nil, cerr
		}
		return wire.DescribeResult{Snapshot: snapshot(el)}, nil

	case wire.MethodDOMBoundingBox:
		var params wire.ElementParams
		if err := json.Unmarshal(raw, &params); err != nil {
			return nil, badRequest("bad params: %v", err)
		}
		_, el, cerr := s.liveElement(params.PageID, params.ElementID)
		if cerr != nil {
			return nil, cerr
		}
		box := el.Box
		if el.JitterLeft > 0 {
			box.Y += float64(el.JitterLeft) * 5
			el.JitterLeft--
		}
		if !el.Visible {
			return wire.BoundingBoxResult{Box: nil}, nil
		}
		return wire.BoundingBoxResult{Box: &box}, nil

	case wire.MethodDOMHitTest:
		var params wire.HitTestParams
		if err := json.Unmarshal(raw, &params); err != nil {
			return nil, badRequest("bad params: %v", err)
		}
		p, el, cerr := s.liveElement(params.PageID, params.ElementID)
		if cerr != nil {
			return nil, cerr
		}
		hit := !el.HitBlocked && p.elementAt(params.Point) == el
		return wire.HitTestResult{Hit: hit}, nil

	case wire.MethodDOMScroll:
		var params wire.ElementParams
		if err := json.Unmarshal(raw, &params); err != nil {
			return nil, badRequest("bad params: %v", err)
		}
		p, el, cerr := s.liveElement(params.PageID, params.ElementID)
		if cerr != nil {
			return nil, cerr
		}
		p.Scrolled = append(p.Scrolled, el.ID)
		return nil, nil

	case wire.MethodDOMFill:
		var params wire.FillParams
		if err := json.Unmarshal(raw, &params); err != nil {
			return nil, badRequest("bad params: %v", err)
		}
		_, el, cerr := s.liveElement(params.PageID, params.ElementID)
		if cerr != nil {
			return nil, cerr
		}
		if !el.Editable {
			return nil, badRequest("element %s is not editable", el.ID)
		}
		el.Value = params.Value
		return nil, nil

	case wire.MethodDOMSelectOption:
		var params wire.SelectOptionParams
		if err := json.Unmarshal(raw, &params); err != nil {
			return nil, badRequest("bad params: %v", err)
		}
		_, el, cerr := s.liveElement(params.PageID, params.ElementID)
		if cerr != nil {
			return nil, cerr
		}
		var selected []string
		for _, v := range params.Values {
			for _, opt := range el.Options {
				if v == opt {
					selected = append(selected, v)
					break
				}
			}
		}
		if len(selected) > 0 {
			el.Value = selected[0]
		}
		return wire.SelectOptionResult{Selected: selected}, nil

	case wire.MethodDOMSelectText:
		var params wire.ElementParams
		if err := json.Unmarshal(raw, &params); err != nil {
			return nil, badRequest("bad params: %v", err)
		}
		_, _, cerr := s.liveElement(params.PageID, params.ElementID)
		return nil, cerr

	case wire.MethodDOMSetFiles:
		var params wire.SetFilesParams
		if err := json.Unmarshal(raw, &params); err != nil {
			return nil, badRequest("bad params: %v", err)
		}
		p, _, cerr := s.liveElement(params.PageID, params.ElementID)
		if cerr != nil {
			return nil, cerr
		}
		p.Files = append(p.Files, params)
		return nil, nil

	case wire.MethodDOMDispatch:
		var params wire.DispatchParams
		if err := json.Unmarshal(raw, &params); err != nil {
			return nil, badRequest("bad params: %v", err)
		}
		p, _, cerr := s.liveElement(params.PageID, params.ElementID)
		if cerr != nil {
			return nil, cerr
		}
		p.Dispatches = append(p.Dispatches, params)
		return nil, nil

	case wire.MethodDOMFocus:
		var params wire.ElementParams
		if err := json.Unmarshal(raw, &params); err != nil {
			return nil, badRequest("bad params: %v", err)
		}
		p, el, cerr := s.liveElement(params.PageID, params.ElementID)
		if cerr != nil {
			return nil, cerr
		}
		p.Focused = append(p.Focused, el.ID)
		return nil, nil

	case wire.MethodDOMAttribute:
		var params wire.AttributeParams
		if err := json.Unmarshal(raw, &params); err != nil {
			return nil, badRequest("bad params: %v", err)
		}
		_, el, cerr := s.liveElement(params.PageID, params.ElementID)
		if cerr != nil {
			return nil, cerr
		}
		var value *string
		if v, ok := el.Attrs[params.Name]; ok {
			value = &v
		}
		return wire.AttributeResult{Value: value}, nil

	case wire.MethodDOMInnerHTML:
		return s.textReply(raw, func(el *Element) string {
			if el.HTML != "" {
				return el.HTML
			}
			return el.Text
		})

	case wire.MethodDOMInnerText, wire.MethodDOMTextContent:
		return s.textReply(raw, func(el *Element) string { return el.Text })

	case wire.MethodDOMInputValue:
		return s.textReply(raw, func(el *Element) string { return el.Value })

	case wire.MethodDOMScreenshot:
		var params wire.ElementParams
		if err := json.Unmarshal(raw, &params); err != nil {
			return nil, badRequest("bad params: %v", err)
		}
		_, el, cerr := s.liveElement(params.PageID, params.ElementID)
		if cerr != nil {
			return nil, cerr
		}
		data := append(append([]byte{}, pngMagic...), el.ID...)
		return wire.ScreenshotResult{Data: data}, nil

	case wire.MethodInputClick:
		var params wire.ClickParams
		if err := json.Unmarshal(raw, &params); err != nil {
			return nil, badRequest("bad params: %v", err)
		}
		p, cerr := s.page(params.PageID)
		if cerr != nil {
			return nil, cerr
		}
		p.Clicks = append(p.Clicks, params)
		if target := p.elementAt(params.Point); target != nil {
			if target.TogglesOnClick {
				target.Checked = !target.Checked
			}
			if target.NavigatesOnClick {
				s.startNavigation(p)
			}
		}
		return nil, nil

	case wire.MethodInputMove:
		var params wire.MoveParams
		if err := json.Unmarshal(raw, &params); err != nil {
			return nil, badRequest("bad params: %v", err)
		}
		p, cerr := s.page(params.PageID)
		if cerr != nil {
			return nil, cerr
		}
		p.Moves = append(p.Moves, params)
		return nil, nil

	case wire.MethodInputTap:
		var params wire.TapParams
		if err := json.Unmarshal(raw, &params); err != nil {
			return nil, badRequest("bad params: %v", err)
		}
		p, cerr := s.page(params.PageID)
		if cerr != nil {
			return nil, cerr
		}
		p.Taps = append(p.Taps, params)
		return nil, nil

	case wire.MethodInputPress:
		var params wire.PressParams
		if err := json.Unmarshal(raw, &params); err != nil {
			return nil, badRequest("bad params: %v", err)
		}
		p, cerr := s.page(params.PageID)
		if cerr != nil {
			return nil, cerr
		}
		p.Presses = append(p.Presses, params)
		return nil, nil

	case wire.MethodInputType:
		var params wire.TypeParams
		if err := json.Unmarshal(raw, &params); err != nil {
			return nil, badRequest("bad params: %v", err)
		}
		p, el, cerr := s.liveElement(params.PageID, params.ElementID)
		if cerr != nil {
			return nil, cerr
		}
		el.Value += params.Text
		p.Typed = append(p.Typed, params)
		return nil, nil

	case wire.MethodInputDrag:
		var params wire.DragParams
		if err := json.Unmarshal(raw, &params); err != nil {
			return nil, badRequest("bad params: %v", err)
		}
		p, cerr := s.page(params.PageID)
		if cerr != nil {
			return nil, cerr
		}
		p.Drags = append(p.Drags, params)
		return nil, nil

	default:
		return nil, badRequest("unknown method %s", method)
	}
}

func (s *Server) textReply(raw json.RawMessage, read func(*Element) string) (interface{}, *callError) {
	var params wire.ElementParams
	if err := json.Unmarshal(raw, &params); err != nil {
		return nil, badRequest("bad params: %v", err)
	}
	_, el, cerr := s.liveElement(params.PageID, params.ElementID)
	if cerr != nil {
		return nil, cerr
	}
	return wire.TextResult{Value: read(el)}, nil
}
