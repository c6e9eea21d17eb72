package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/roach88/reel/internal/ir"
)

// recordView is the output shape of a single record.
type recordView struct {
	Kind    ir.Kind             `json:"kind"`
	Address ir.Address          `json:"address"`
	Status  ir.ModerationStatus `json:"status,omitempty"`
	Record  any                 `json:"record"`
}

func stateView(s ir.PlatformState) recordView {
	return recordView{Kind: ir.KindState, Address: ir.StateAddress(), Record: s}
}

func userView(u ir.User) recordView {
	return recordView{Kind: ir.KindUser, Address: ir.UserAddress(u.Owner), Record: u}
}

func videoView(v ir.Video) recordView {
	return recordView{Kind: ir.KindVideo, Address: v.Address(), Status: v.Status(), Record: v}
}

func commentView(c ir.Comment) recordView {
	return recordView{Kind: ir.KindComment, Address: c.Address(), Record: c}
}

func (v recordView) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s\n", v.Kind, v.Address.Short())
	fields, err := flatten(v.Record)
	if err != nil {
		fmt.Fprintf(&b, "  <%v>\n", err)
		return b.String()
	}
	if v.Status != "" {
		fields["status"] = v.Status
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, "  %-24s %v\n", k+":", fields[k])
	}
	return b.String()
}

// recordList renders several records, separated by blank lines.
type recordList []recordView

func (l recordList) String() string {
	if len(l) == 0 {
		return "(none)\n"
	}
	parts := make([]string, len(l))
	for i, v := range l {
		parts[i] = v.String()
	}
	return strings.Join(parts, "\n")
}

// eventList renders events one per line.
type eventList []ir.Event

func (l eventList) String() string {
	if len(l) == 0 {
		return "No events.\n"
	}
	var b strings.Builder
	for _, ev := range l {
		data, err := json.Marshal(ev.Data)
		if err != nil {
			data = []byte(err.Error())
		}
		fmt.Fprintf(&b, "%6d  %-16s %-12s %s  %s\n", ev.Seq, ev.Type, ev.Caller, ev.FlowToken, data)
	}
	return b.String()
}

// flatten decodes v's JSON form into a field map. Numbers stay exact.
func flatten(v any) (map[string]any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var fields map[string]any
	if err := dec.Decode(&fields); err != nil {
		return nil, err
	}
	return fields, nil
}
