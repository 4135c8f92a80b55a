package nl

import (
	"testing"
)

func TestNormalizeLabel(t *testing.T) {
	tests := []struct {
		in   string
		want Label
	}{
		{"clear", LabelClear},
		{" Clear.\n", LabelClear},
		{"undo", LabelUndo},
		{"redo", LabelUndo},
		{"unrelated", LabelImpossible},
		{"irrelevant", LabelImpossible},
		{"unknown", LabelInsufficient},
		{"question", LabelQuestion},
		{"long", LabelLong},
		{"banana", LabelClear}, // fail-open
	}
	for _, tc := range tests {
		if got := NormalizeLabel(tc.in); got != tc.want {
			t.Errorf("NormalizeLabel(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestDecodeActionsSingle(t *testing.T) {
	recs := DecodeActions("action:move,requested_action:0,target:0,indirect_target:0,item:0,location:area_back,topic_of_conversation:0")
	if len(recs) != 1 {
		t.Fatalf("records = %d, want 1", len(recs))
	}
	r := recs[0]
	if r.Action != "move" || r.Location != "area_back" {
		t.Errorf("record = %+v", r)
	}
	if r.Target != "" || r.Item != "" || r.Topic != "" {
		t.Errorf("null slots not cleared: %+v", r)
	}
}

func TestDecodeActionsMulti(t *testing.T) {
	text := `1. action:pick_up,requested_action:0,target:0,indirect_target:0,item:item_crowbar,location:0,topic_of_conversation:0
2. action=move, requested_action=none, target=none, indirect_target=none, item=none, location=Backroom, topic_of_conversation=none`
	recs := DecodeActions(text)
	if len(recs) != 2 {
		t.Fatalf("records = %d, want 2", len(recs))
	}
	if recs[0].Action != "pick_up" || recs[0].Item != "item_crowbar" {
		t.Errorf("first = %+v", recs[0])
	}
	if recs[1].Action != "move" || recs[1].Location != "Backroom" {
		t.Errorf("second = %+v (equals-separator form)", recs[1])
	}
}

func TestDecodeActionsPromotesAskAction(t *testing.T) {
	recs := DecodeActions("action:talk,requested_action:give_item,target:Kenny,indirect_target:0,item:Fire Axe,location:0,topic_of_conversation:0")
	if len(recs) != 1 {
		t.Fatalf("records = %d, want 1", len(recs))
	}
	if recs[0].Action != "ask_action" || recs[0].RequestedAction != "give_item" {
		t.Errorf("record = %+v, want promotion to ask_action", recs[0])
	}
}

func TestDecodeActionsIgnoresGarbage(t *testing.T) {
	if recs := DecodeActions("I am sorry, I cannot help with that."); len(recs) != 0 {
		t.Errorf("records = %+v, want none", recs)
	}
}
