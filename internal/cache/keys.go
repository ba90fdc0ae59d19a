package cache

import "fmt"

const (
	KeyProductsList = "products:list"
	keyProduct      = "products:%d"
	keyEventSeen    = "notification:event:%s"
)

func ProductKey(productID int64) string {
	return fmt.Sprintf(keyProduct, productID)
}

func EventSeenKey(eventID string) string {
	return fmt.Sprintf(keyEventSeen, eventID)
}
