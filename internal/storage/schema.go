package storage

import (
	"fmt"
	"sort"
	"strconv"

	"pagos/internal/core"
)

// Document versions:
//
//	1: fixed account list, no "accounts" or "schema_version" keys
//	2: configurable accounts and categories, items carry no id
//	3: explicit schema_version, every item has an "id"
type schemaMigration func(c Codec, doc *document) error

var schemaMigrations = map[int]schemaMigration{
	1: migrateV1ToV2,
	2: migrateV2ToV3,
}

func detectVersion(declared int, hasAccounts bool) int {
	switch {
	case declared > 0:
		return declared
	case hasAccounts:
		return 2
	default:
		return 1
	}
}

func (c Codec) migrate(doc *document) error {
	if doc.SchemaVersion > core.CurrentSchemaVersion {
		return fmt.Errorf("schema version %d is newer than supported %d", doc.SchemaVersion, core.CurrentSchemaVersion)
	}
	for doc.SchemaVersion < core.CurrentSchemaVersion {
		step, ok := schemaMigrations[doc.SchemaVersion]
		if !ok {
			return fmt.Errorf("no migration from schema version %d", doc.SchemaVersion)
		}
		from := doc.SchemaVersion
		if err := step(c, doc); err != nil {
			return fmt.Errorf("migrate schema %d: %w", from, err)
		}
		if doc.SchemaVersion != from+1 {
			return fmt.Errorf("migration from schema %d left version %d", from, doc.SchemaVersion)
		}
	}
	return nil
}

// migrateV1ToV2 fills in the account list.
func migrateV1ToV2(c Codec, doc *document) error {
	if len(doc.Accounts) == 0 {
		if len(c.Accounts) > 0 {
			for _, a := range c.Accounts {
				doc.Accounts = append(doc.Accounts, accountDoc{ID: a.ID, Name: a.Name, Color: a.Color})
			}
		} else {
			ids := make([]int, 0, len(doc.Balances))
			for key := range doc.Balances {
				id, err := strconv.Atoi(key)
				if err != nil {
					return fmt.Errorf("balance key %q is not an account id", key)
				}
				ids = append(ids, id)
			}
			sort.Ints(ids)
			for _, id := range ids {
				doc.Accounts = append(doc.Accounts, accountDoc{ID: id, Name: fmt.Sprintf("Cuenta %d", id)})
			}
		}
	}
	doc.SchemaVersion = 2
	return nil
}

// migrateV2ToV3 gives every charge an id and derives missing categories from
// the template. Generated charges take their template id; ad-hoc charges and
// collisions draw from next_id.
func migrateV2ToV3(_ Codec, doc *document) error {
	if doc.Categories == nil {
		seen := map[string]bool{}
		doc.Categories = []string{}
		for _, t := range doc.Template {
			if t.Category != "" && !seen[t.Category] {
				seen[t.Category] = true
				doc.Categories = append(doc.Categories, t.Category)
			}
		}
	}
	for _, t := range doc.Template {
		if t.ID >= doc.NextID {
			doc.NextID = t.ID + 1
		}
	}
	for _, key := range sortedMonthKeys(doc) {
		m := doc.Months[key]
		if m == nil {
			continue
		}
		seen := map[int]bool{}
		for i := range m.Items {
			it := &m.Items[i]
			if it.TID == nil {
				it.IsAdhoc = true
			}
			if it.Type == "" {
				if it.IsAdhoc {
					it.Type = core.KindAdhoc.String()
				} else {
					it.Type = core.KindFixed.String()
				}
			}
			if it.ID != nil && !seen[*it.ID] {
				seen[*it.ID] = true
				continue
			}
			var id int
			if !it.IsAdhoc && !seen[*it.TID] {
				id = *it.TID
			} else {
				id = doc.NextID
				doc.NextID++
			}
			it.ID = &id
			seen[id] = true
		}
	}
	doc.SchemaVersion = 3
	return nil
}
