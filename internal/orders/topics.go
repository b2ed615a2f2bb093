package orders

import "strconv"

const TopicOrderPlaced = "market.order.placed"

func OrderKey(orderID int64) string { return strconv.FormatInt(orderID, 10) }

// PartitionKey keeps every event of one order on one partition.
func PartitionKey(orderID int64) []byte { return []byte(OrderKey(orderID)) }
