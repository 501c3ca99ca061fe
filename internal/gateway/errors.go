package gateway

import "fmt"

func errForwardRejected(status int) error {
	return fmt.Errorf("worker responded with status %d", status)
}
