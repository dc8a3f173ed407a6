package postgres

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/dense-analysis/walletledger/internal/docstore"
)

type statement struct {
	path      string
	sql       string
	arguments []any
}

const (
	deleteCollectionSQL = `delete from ledger_document where collection = $1`
	deleteDocumentSQL   = `delete from ledger_document where collection = $1 and key = $2`
	upsertDocumentSQL   = `insert into ledger_document (collection, key, value)
values ($1, $2, $3::jsonb)
on conflict (collection, key) do update set value = excluded.value`
	upsertFieldSQL = `insert into ledger_document (collection, key, value)
values ($1, $2, jsonb_build_object($3::text, $4::jsonb))
on conflict (collection, key) do update
set value = jsonb_set(ledger_document.value, array[$3::text], $4::jsonb, true)`
	deleteFieldSQL = `update ledger_document set value = value - $3::text
where collection = $1 and key = $2`
	notifySQL = `select pg_notify('` + Channel + `', $1)`
)

func encode(value any) (string, error) {
	data, err := json.Marshal(value)

	if err != nil {
		return "", err
	}

	return string(data), nil
}

func documentStatements(path, collection, key string, value any) ([]statement, error) {
	if value == nil {
		return []statement{{path, deleteDocumentSQL, []any{collection, key}}}, nil
	}

	text, err := encode(value)

	if err != nil {
		return nil, err
	}

	return []statement{{path, upsertDocumentSQL, []any{collection, key, text}}}, nil
}

// planStatements turns an atomic write into the SQL statements run inside one
// transaction, followed by one notification per touched collection.
func planStatements(updates map[string]any) ([]statement, error) {
	planned, err := docstore.PlanUpdates(updates)

	if err != nil {
		return nil, err
	}

	var statements []statement
	touched := map[string]bool{}

	for _, update := range planned {
		segments := update.Segments
		collection := segments[0]
		touched[collection] = true

		switch len(segments) {
		case 1:
			statements = append(statements, statement{update.Path, deleteCollectionSQL, []any{collection}})

			if update.Value == nil {
				continue
			}

			documents, ok := update.Value.(map[string]any)

			if !ok {
				return nil, fmt.Errorf("%w: collection %q must hold documents", docstore.ErrInvalidPath, collection)
			}

			keys := make([]string, 0, len(documents))

			for key := range documents {
				keys = append(keys, key)
			}

			sort.Strings(keys)

			for _, key := range keys {
				list, err := documentStatements(update.Path+"/"+key, collection, key, documents[key])

				if err != nil {
					return nil, err
				}

				statements = append(statements, list...)
			}
		case 2:
			list, err := documentStatements(update.Path, collection, segments[1], update.Value)

			if err != nil {
				return nil, err
			}

			statements = append(statements, list...)
		case 3:
			if update.Value == nil {
				statements = append(statements, statement{
					update.Path,
					deleteFieldSQL,
					[]any{collection, segments[1], segments[2]},
				})

				continue
			}

			text, err := encode(update.Value)

			if err != nil {
				return nil, err
			}

			statements = append(statements, statement{
				update.Path,
				upsertFieldSQL,
				[]any{collection, segments[1], segments[2], text},
			})
		default:
			return nil, fmt.Errorf("%w: %q is more than three keys deep", docstore.ErrInvalidPath, update.Path)
		}
	}

	collections := make([]string, 0, len(touched))

	for collection := range touched {
		collections = append(collections, collection)
	}

	sort.Strings(collections)

	for _, collection := range collections {
		statements = append(statements, statement{collection, notifySQL, []any{collection}})
	}

	return statements, nil
}
