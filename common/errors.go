package common

import (
	"fmt"
)

// ReportError formats a message with the error appended, logs it as a warning
// and returns it
func ReportError(format string, err error, args ...interface{}) string {
	allArgs := make([]interface{}, len(args)+1)
	copy(allArgs, args)
	allArgs[len(allArgs)-1] = err
	message := fmt.Sprintf(format+": %v", allArgs...)
	Logger.Warn(message)
	return message
}
