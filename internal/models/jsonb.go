package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// scanJSON разбирает значение JSONB-колонки в dst. NULL оставляет dst нетронутым.
func scanJSON(src interface{}, dst interface{}) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("jsonb: unsupported source type %T", src)
	}
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, dst)
}

// jsonArrayValue сериализует срез в JSONB, nil превращается в пустой массив.
func jsonArrayValue(v interface{}, empty bool) (driver.Value, error) {
	if empty {
		return []byte("[]"), nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return b, nil
}
