package postgres

import (
	"encoding/json"
	"errors"
	"reflect"
	"testing"

	"github.com/dense-analysis/walletledger/internal/docstore"
)

func TestPlanStatementsForATrade(t *testing.T) {
	statements, err := planStatements(map[string]any{
		"accounts/k1/saldoDisponible": json.Number("1888.3"),
		"holdings/btc/monto":          json.Number("0.01"),
		"transactions/t1": map[string]any{
			"tipo":  "buy_crypto",
			"monto": json.Number("612.45"),
		},
	})

	if err != nil {
		t.Fatalf("planStatements() error = %v", err)
	}

	var got []string

	for _, statement := range statements {
		got = append(got, statement.path)
	}

	want := []string{
		"accounts/k1/saldoDisponible",
		"holdings/btc/monto",
		"transactions/t1",
		"accounts",
		"holdings",
		"transactions",
	}

	if !reflect.DeepEqual(got, want) {
		t.Fatalf("statement paths = %v, want %v", got, want)
	}

	if statements[0].sql != upsertFieldSQL {
		t.Errorf("field write uses %q", statements[0].sql)
	}

	if want := []any{"accounts", "k1", "saldoDisponible", "1888.3"}; !reflect.DeepEqual(statements[0].arguments, want) {
		t.Errorf("field arguments = %v, want %v", statements[0].arguments, want)
	}

	if statements[2].sql != upsertDocumentSQL {
		t.Errorf("document write uses %q", statements[2].sql)
	}

	if statements[2].arguments[2] != `{"monto":612.45,"tipo":"buy_crypto"}` {
		t.Errorf("document json = %v", statements[2].arguments[2])
	}

	if statements[5].sql != notifySQL {
		t.Errorf("last statement = %q, want a notification", statements[5].sql)
	}
}

func TestPlanStatementsReplacesCollections(t *testing.T) {
	statements, err := planStatements(map[string]any{
		"catalog": map[string]any{
			"eth": map[string]any{"name": "Ethereum"},
			"btc": map[string]any{"name": "Bitcoin"},
		},
	})

	if err != nil {
		t.Fatalf("planStatements() error = %v", err)
	}

	if len(statements) != 4 {
		t.Fatalf("got %d statements, want 4", len(statements))
	}

	if statements[0].sql != deleteCollectionSQL {
		t.Errorf("first statement = %q, want the collection delete", statements[0].sql)
	}

	if statements[1].path != "catalog/btc" || statements[2].path != "catalog/eth" {
		t.Errorf("documents written as %q, %q", statements[1].path, statements[2].path)
	}
}

func TestPlanStatementsDeletes(t *testing.T) {
	statements, err := planStatements(map[string]any{
		"holdings/btc":      nil,
		"holdings/eth/name": nil,
	})

	if err != nil {
		t.Fatalf("planStatements() error = %v", err)
	}

	if statements[0].sql != deleteDocumentSQL || statements[1].sql != deleteFieldSQL {
		t.Errorf("statements = %q, %q", statements[0].sql, statements[1].sql)
	}
}

func TestPlanStatementsRejectsDeepPaths(t *testing.T) {
	_, err := planStatements(map[string]any{"accounts/k1/meta/created": "today"})

	if !errors.Is(err, docstore.ErrInvalidPath) {
		t.Fatalf("planStatements() error = %v, want ErrInvalidPath", err)
	}
}
