package util

import (
	"fmt"
	"strconv"
	"time"
)

// Example output for "ex.txt": "k3j9x0a1b2c3_ex.txt"
func AddUniquePrefixToFileName(fileName string) string {
	uniquePrefix, err := GenerateNChar(12)
	if err != nil {
		uniquePrefix = strconv.FormatInt(time.Now().UnixNano(), 36)
	}
	return fmt.Sprintf("%s_%s", uniquePrefix, fileName)
}
