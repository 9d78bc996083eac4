package db

import "database/sql"

// CollectRows flattens a result set into generic maps, byte slices decoded as
// strings so JSON output stays legible. Rows come back verbatim; callers do
// no reshaping.
func CollectRows(rows *sql.Rows) ([]map[string]any, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	out := make([]map[string]any, 0, 4)
	for rows.Next() {
		raw := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range raw {
			ptrs[i] = &raw[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		row := make(map[string]any, len(cols))
		for i, c := range cols {
			if b, ok := raw[i].([]byte); ok {
				row[c] = string(b)
				continue
			}
			row[c] = raw[i]
		}
		out = append(out, row)
	}
	return out, rows.Err()
}
