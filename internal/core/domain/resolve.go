package domain

// Resolution is the outcome of resolving one worksheet against a catalogue.
type Resolution struct {
	Verdict    Verdict
	OutOfScope bool
}

// Resolve picks the best schema for a worksheet. Sheets named in outOfScope
// are never matched. The catalogue is scanned in order; an exact match ends
// the scan, and the first extended or partial match is kept even if a later
// schema would match better.
func Resolve(ws Worksheet, cat *Catalogue, outOfScope SheetSet) Resolution {
	if outOfScope.Has(ws.SheetName) {
		return Resolution{OutOfScope: true}
	}

	observed := FilterColumns(ws.Columns)
	best := Verdict{Kind: MatchNone}

	for _, s := range cat.schemas {
		if s.Empty() {
			continue
		}
		v := CheckSchemaMatch(s.Columns, observed)
		v.Schema = s.Name

		switch v.Kind {
		case MatchExact:
			return Resolution{Verdict: v}
		case MatchExtended, MatchPartial:
			if !best.Matched() {
				best = v
			}
		}
	}

	if !best.Matched() {
		return Resolution{Verdict: Verdict{Kind: MatchNone}}
	}
	return Resolution{Verdict: best}
}
