package route_test

import (
	"encoding/json"
	"strconv"
)

func itoa(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}

func jsonUnmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}
