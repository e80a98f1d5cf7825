package attrbucket

// Observer receives events from accessors, e.g. to export metrics.
// Implementations must be safe for concurrent use, since one record type is
// shared by all its instances.
type Observer interface {
	ObserveCast(record string, def AttrDef, outcome CastOutcome)
	ObserveChange(record, column string)
}

func (rt *RecordType) observeCast(def AttrDef, outcome CastOutcome) {
	rt.logger.Trace().Str("record", rt.name).Str("attr", def.Name).Stringer("outcome", outcome).Msg("cast")
	if rt.observer != nil {
		rt.observer.ObserveCast(rt.name, def, outcome)
	}
}
