package nl

import (
	"regexp"
	"strings"
)

// kvPattern matches one key/value pair in the parser wire format. Separators
// are tolerant: models emit both "key:value" and "key=value".
var kvPattern = regexp.MustCompile(`(?i)([a-z_]+)\s*[:=]\s*([^,\n;]*)`)

// wireSentinels are value spellings meaning "no value".
var wireSentinels = map[string]bool{
	"": true, "0": true, "none": true, "null": true, "nil": true,
	"n/a": true, "na": true, "nothing": true,
}

// DecodeActions parses the wire format
//
//	action:<id>,requested_action:<id>,target:<t>,indirect_target:<t>,item:<t>,location:<t>,topic_of_conversation:<t>
//
// into action records. A new record starts at every "action" key, so
// numbered multi-intent sequences decode naturally. Null tokens become
// empty slots. A record carrying a requested action is promoted to
// ask_action when the model forgot to say so.
func DecodeActions(text string) []ActionRecord {
	var out []ActionRecord
	var cur *ActionRecord
	for _, m := range kvPattern.FindAllStringSubmatch(text, -1) {
		key := strings.ToLower(m[1])
		val := cleanToken(m[2])
		if key == "action" {
			out = append(out, ActionRecord{Action: val})
			cur = &out[len(out)-1]
			continue
		}
		if cur == nil {
			continue
		}
		switch key {
		case "requested_action":
			cur.RequestedAction = val
		case "target":
			cur.Target = val
		case "indirect_target":
			cur.IndirectTarget = val
		case "item":
			cur.Item = val
		case "location":
			cur.Location = val
		case "topic", "topic_of_conversation":
			cur.Topic = val
		}
	}

	kept := out[:0]
	for _, rec := range out {
		if rec.RequestedAction != "" && rec.Action != "ask_action" {
			rec.Action = "ask_action"
		}
		if rec.Action == "" && rec.RequestedAction == "" {
			continue
		}
		kept = append(kept, rec)
	}
	return kept
}

// cleanToken strips wrapping quotes and whitespace and collapses null
// spellings to "".
func cleanToken(s string) string {
	s = strings.TrimSpace(s)
	s = strings.Trim(s, `"'`)
	s = strings.TrimSpace(s)
	if wireSentinels[strings.ToLower(s)] {
		return ""
	}
	return s
}
