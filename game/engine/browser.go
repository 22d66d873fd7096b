package engine

import "context"

// ClueNpcBrowser looks up the investigative content at an airport
type ClueNpcBrowser struct{}

// CluesAt returns the clues at an airport, never nil
func (b *ClueNpcBrowser) CluesAt(ctx context.Context, store ReferenceStore, airportID int64) ([]Clue, error) {
	clues, err := store.GetCluesAt(ctx, airportID)
	if err != nil {
		return nil, storageError("load clues", err)
	}
	if clues == nil {
		clues = []Clue{}
	}
	return clues, nil
}

// NpcsAt returns the informants at an airport, never nil
func (b *ClueNpcBrowser) NpcsAt(ctx context.Context, store ReferenceStore, airportID int64) ([]NPC, error) {
	npcs, err := store.GetNpcsAt(ctx, airportID)
	if err != nil {
		return nil, storageError("load npcs", err)
	}
	if npcs == nil {
		npcs = []NPC{}
	}
	return npcs, nil
}
