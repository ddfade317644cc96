package reply

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/hupe1980/sentinel/core"
)

// Reply is a decoded, contract-checked model reply.
type Reply struct {
	Text   string
	Action core.Action
	// Discarded counts extra action candidates that were ignored.
	Discarded int
}

type wireReply struct {
	ReplyText *string         `json:"replyText"`
	Action    json.RawMessage `json:"action"`
}

// Decode parses raw model output. It accepts a bare JSON object, one wrapped
// in a fenced code block, or an array of reply objects (first well-formed
// wins; a candidate carrying a malformed action is used only when no other
// candidate is well-formed).
//
// The returned error wraps core.ErrContractViolation when the text is not a
// reply object or when the replyText field is absent without an action. A
// blank replyText is accepted; callers substitute their own fallback. A
// malformed action is not a decode error: it is reported through Reply.Action.
func Decode(raw string) (Reply, error) {
	body := bytes.TrimSpace([]byte(stripFence(raw)))
	if len(body) == 0 {
		return Reply{}, fmt.Errorf("%w: empty reply", core.ErrContractViolation)
	}

	if body[0] == '[' {
		var candidates []json.RawMessage
		if err := json.Unmarshal(body, &candidates); err != nil {
			return Reply{}, fmt.Errorf("%w: %v", core.ErrContractViolation, err)
		}
		var (
			firstErr       error
			firstMalformed *Reply
		)
		for i, c := range candidates {
			r, err := decodeObject(c)
			if err != nil {
				if firstErr == nil {
					firstErr = err
				}
				continue
			}
			if r.Action.IsMalformed() {
				if firstMalformed == nil {
					firstMalformed = &r
				}
				continue
			}
			r.Discarded += len(candidates) - i - 1
			return r, nil
		}
		if firstMalformed != nil {
			firstMalformed.Discarded += len(candidates) - 1
			return *firstMalformed, nil
		}
		if firstErr == nil {
			firstErr = fmt.Errorf("%w: empty candidate list", core.ErrContractViolation)
		}
		return Reply{}, firstErr
	}

	return decodeObject(body)
}

func decodeObject(body []byte) (Reply, error) {
	var w wireReply
	if err := json.Unmarshal(body, &w); err != nil {
		return Reply{}, fmt.Errorf("%w: %v", core.ErrContractViolation, err)
	}

	var r Reply
	if w.ReplyText != nil {
		r.Text = *w.ReplyText
	}

	r.Action, r.Discarded = decodeAction(w.Action)
	if r.Action.IsNone() && w.ReplyText == nil {
		return Reply{}, fmt.Errorf("%w: replyText is required", core.ErrContractViolation)
	}
	return r, nil
}

// decodeAction maps the raw action field onto the tagged variant. An array
// of candidates yields the first well-formed one.
func decodeAction(raw json.RawMessage) (core.Action, int) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return core.Action{}, 0
	}

	if raw[0] == '[' {
		var candidates []json.RawMessage
		if err := json.Unmarshal(raw, &candidates); err != nil {
			return core.Malformed("action list is not valid JSON"), 0
		}
		if len(candidates) == 0 {
			return core.Action{}, 0
		}
		var first core.Action
		for i, c := range candidates {
			a := actionFromObject(c)
			if a.IsKnown() {
				return a, len(candidates) - 1
			}
			if i == 0 {
				first = a
			}
		}
		return first, len(candidates) - 1
	}

	return actionFromObject(raw), 0
}

func actionFromObject(raw json.RawMessage) core.Action {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return core.Malformed("action is not an object")
	}

	kindRaw, hasKind := obj["kind"]
	paramsRaw, hasParams := obj["params"]
	switch {
	case !hasKind && !hasParams:
		return core.Malformed("action is missing kind and params")
	case !hasKind:
		return core.Malformed("action is missing kind")
	case !hasParams:
		return core.Malformed("action is missing params")
	}

	var kindStr string
	if err := json.Unmarshal(kindRaw, &kindStr); err != nil || kindStr == "" {
		return core.Malformed("action kind is not a string")
	}
	kind, ok := core.ParseActionKind(kindStr)
	if !ok {
		return core.Malformed(fmt.Sprintf("unknown action kind %q", kindStr))
	}

	var params map[string]any
	if err := json.Unmarshal(paramsRaw, &params); err != nil || params == nil {
		return core.Malformed("action params is not an object")
	}

	return core.Known(kind, params)
}

// stripFence removes a surrounding ``` or ```json fence, if any.
func stripFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	} else {
		s = strings.TrimPrefix(s, "json")
	}
	if end := strings.LastIndex(s, "```"); end >= 0 {
		s = s[:end]
	}
	return s
}
