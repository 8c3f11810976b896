package plandebug

import (
	"fmt"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// DumpJSON serializes recorded attempts to JSON, for the rank-correlation
// validation tooling described in spec.md §8 to persist and replay.
func DumpJSON(attempts []AttemptRecord) (string, error) {
	doc := "[]"
	var err error
	for i, a := range attempts {
		base := fmt.Sprintf("%d", i)
		if doc, err = sjson.Set(doc, base+".session", a.Session.ID.String()); err != nil {
			return "", err
		}
		if doc, err = sjson.Set(doc, base+".graphKey", a.GraphKey); err != nil {
			return "", err
		}
		if doc, err = sjson.Set(doc, base+".attempt", a.Attempt); err != nil {
			return "", err
		}
		if doc, err = sjson.Set(doc, base+".flipPattern", a.FlipPattern); err != nil {
			return "", err
		}
		if doc, err = sjson.Set(doc, base+".totalCost", a.TotalCost); err != nil {
			return "", err
		}
		for j, jd := range a.Joins {
			jbase := fmt.Sprintf("%s.joins.%d", base, j)
			if doc, err = sjson.Set(doc, jbase+".joinId", jd.JoinID); err != nil {
				return "", err
			}
			if doc, err = sjson.Set(doc, jbase+".flipped", jd.Flipped); err != nil {
				return "", err
			}
		}
	}
	return doc, nil
}

// LoadJSON parses a trace previously produced by DumpJSON back into plain
// attempt summaries (the Session field is dropped: it is not meaningful
// once replayed outside the process that generated it).
func LoadJSON(doc string) ([]AttemptEvent, error) {
	if !gjson.Valid(doc) {
		return nil, fmt.Errorf("zqlplan: invalid trace json")
	}
	var out []AttemptEvent
	for _, rec := range gjson.Parse(doc).Array() {
		ev := AttemptEvent{
			Attempt:     int(rec.Get("attempt").Int()),
			FlipPattern: rec.Get("flipPattern").Uint(),
			TotalCost:   rec.Get("totalCost").Float(),
		}
		for _, j := range rec.Get("joins").Array() {
			ev.Joins = append(ev.Joins, JoinDecision{
				JoinID:  int(j.Get("joinId").Int()),
				Flipped: j.Get("flipped").Bool(),
			})
		}
		out = append(out, ev)
	}
	return out, nil
}
