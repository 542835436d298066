package export

import (
	"strings"

	"github.com/rs/zerolog"

	"macrofact/internal/macro"
)

// accountColumns are accepted header names for the accounting code column of
// the issuer sheet, in lookup order.
var accountColumns = []string{
	"cuenta_contable", "codigo_contable", "cuenta_cliente",
	"codigo_cliente", "cuenta", "codigo 430", "codigo",
}

// codeResolver looks up accounting client codes in the CLIENTES sheet of the
// originating workbook. Lookups are cached per client and workbook for the
// lifetime of one export run.
type codeResolver struct {
	log   zerolog.Logger
	cache map[string]string
}

func newCodeResolver(log zerolog.Logger) *codeResolver {
	return &codeResolver{log: log, cache: make(map[string]string)}
}

// resolve returns the configured accounting code for a client name, or ""
// when the workbook carries none. The workbook is reopened on cache misses
// only.
func (r *codeResolver) resolve(clientName, workbookPath string) string {
	client := strings.TrimSpace(clientName)
	if client == "" || workbookPath == "" {
		return ""
	}
	key := client + "|" + workbookPath
	if code, ok := r.cache[key]; ok {
		return code
	}
	code := r.lookup(client, workbookPath)
	r.cache[key] = code
	return code
}

func (r *codeResolver) lookup(client, workbookPath string) string {
	w, err := macro.OpenWorkbook(workbookPath)
	if err != nil {
		r.log.Warn().Err(err).Str("workbook", workbookPath).
			Msg("cannot open workbook for client code lookup")
		return ""
	}
	defer w.Close()

	sheet, ok := w.FindSheet(macro.ConfigSheets)
	if !ok {
		return ""
	}
	rows, err := w.NamedRows(sheet)
	if err != nil || len(rows) == 0 {
		return ""
	}

	column := ""
	for _, cand := range accountColumns {
		if _, ok := rows[0][cand]; ok {
			column = cand
			break
		}
	}
	if column == "" {
		return ""
	}

	target := macro.FoldText(client)

	// exact match on either name column wins over a substring match
	for _, nameCol := range []string{"empresa_nombre", "nombre_legal"} {
		for _, row := range rows {
			if macro.FoldText(row[nameCol]) == target {
				if code := cleanAccountCode(row[column]); code != "" {
					return code
				}
			}
		}
	}
	for _, nameCol := range []string{"empresa_nombre", "nombre_legal"} {
		for _, row := range rows {
			name := macro.FoldText(row[nameCol])
			if name == "" {
				continue
			}
			if strings.Contains(target, name) || strings.Contains(name, target) {
				if code := cleanAccountCode(row[column]); code != "" {
					return code
				}
			}
		}
	}
	return ""
}

// cleanAccountCode normalizes a raw sheet cell into a usable code, dropping
// spreadsheet float artifacts and blank markers.
func cleanAccountCode(raw string) string {
	s := strings.TrimSpace(raw)
	switch strings.ToLower(s) {
	case "", "nan", "none", "null":
		return ""
	}
	if i := strings.Index(s, ".0"); i > 0 && strings.Trim(s[i+1:], "0") == "" {
		s = s[:i]
	}
	return s
}
