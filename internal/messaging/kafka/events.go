package kafka

// Topics для событий кассы.
const (
	// TopicSaleEvents — проведённые чеки и возвраты.
	TopicSaleEvents = "pos.sale.events"
	// TopicStockEvents — движения остатков.
	TopicStockEvents = "pos.stock.events"
	// TopicDeadLetterQueue — сообщения, не доставленные после всех retry.
	TopicDeadLetterQueue = "pos.dlq"
)
