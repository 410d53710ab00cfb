package feed

import (
	"encoding/json"
	"errors"
	"fmt"

	"odds_grid/internal/domain"
)

// EncodeEvent marshals an odds change into the transport envelope:
//
//	{"id":"...","changedOdds":{"odd1":"1.85","oddX":"3.2",...}}
func EncodeEvent(ev domain.OddsChangeEvent) ([]byte, error) {
	return json.Marshal(ev)
}

// DecodeEvent parses and validates one envelope. Decode failures are not retriable.
func DecodeEvent(data []byte) (domain.OddsChangeEvent, error) {
	var ev domain.OddsChangeEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return ev, domain.NewFatalNetworkError("decode", err)
	}
	if ev.MatchID == "" {
		return ev, domain.NewFatalNetworkError("decode", errors.New("missing match id"))
	}
	if err := ev.Odds.Validate(); err != nil {
		return ev, domain.NewFatalNetworkError("decode", fmt.Errorf("match %s: %w", ev.MatchID, err))
	}
	return ev, nil
}
