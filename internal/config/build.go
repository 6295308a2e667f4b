package config

import (
	"fmt"
	"log/slog"

	"github.com/meavi1994/go-pimdb"
)

// Build creates a database of Record collections from cfg and seeds it.
func Build(cfg *Config, logger *slog.Logger) (*pimdb.Database, error) {
	db := pimdb.NewDatabase()
	for _, cc := range cfg.Collections {
		c, err := buildCollection(cc)
		if err != nil {
			return nil, fmt.Errorf("collection %q: %w", cc.Name, err)
		}
		if err := db.Register(cc.Name, c); err != nil {
			return nil, err
		}
		logger.Info("collection loaded", "name", cc.Name, "documents", c.Len(), "indexes", c.IndexNames())
	}
	return db, nil
}

func buildCollection(cc Collection) (*pimdb.Collection[pimdb.Record], error) {
	secondary := make(map[string]pimdb.Index[pimdb.Record], len(cc.Indexes))
	for _, ic := range cc.Indexes {
		idx, err := newIndex(ic)
		if err != nil {
			return nil, err
		}
		secondary[ic.Name] = idx
	}
	c, err := pimdb.NewCollection(pimdb.NewPrimaryIndex[pimdb.Record](), secondary)
	if err != nil {
		return nil, err
	}

	docs := cc.Documents
	if cc.Source != "" {
		more, err := readDocuments(cc.Source)
		if err != nil {
			return nil, err
		}
		docs = append(docs[:len(docs):len(docs)], more...)
	}
	for i, m := range docs {
		rec, err := record(m, cc.AssignIDs)
		if err != nil {
			return nil, fmt.Errorf("document %d: %w", i, err)
		}
		if !c.Insert(rec) {
			return nil, fmt.Errorf("%w: document %q rejected (duplicate id or field not indexable)", ErrInvalidConfig, rec.GetID())
		}
	}
	return c, nil
}

func newIndex(ic Index) (pimdb.Index[pimdb.Record], error) {
	switch ic.Kind {
	case KindSorted:
		return pimdb.NewSortedIndex[pimdb.Record](ic.Field)
	case KindSubstring:
		return pimdb.NewSubstringIndex[pimdb.Record](ic.Field)
	}
	return nil, fmt.Errorf("%w: index %q has unknown kind %q", ErrInvalidConfig, ic.Name, ic.Kind)
}

// record turns a decoded document into a Record with a string id.
func record(m map[string]any, assignIDs bool) (pimdb.Record, error) {
	rec := pimdb.Record(m)
	switch id := rec["id"].(type) {
	case string:
		if id != "" {
			return rec, nil
		}
	case nil:
	default:
		if _, ok := pimdb.KeyOf(id); !ok {
			return nil, fmt.Errorf("%w: id %v is not a scalar", ErrInvalidConfig, id)
		}
		rec["id"] = fmt.Sprint(id)
		return rec, nil
	}
	if !assignIDs {
		return nil, fmt.Errorf("%w: document has no id", ErrInvalidConfig)
	}
	rec["id"] = pimdb.NewID()
	return rec, nil
}
