package enum

// Operation identifies a logical request carried over the bus.
type Operation uint8

const (
	_op_beg Operation = iota
	OperationUpdate
	OperationQuerySpecific
	OperationQueryConsolidated
	OperationQueryBatch
	OperationDelete
	_op_end
)

// TopicResponse is the shared channel every response envelope travels on.
const TopicResponse = "market-data-response"

var operationTopics = [...]string{
	OperationUpdate:            "market-data-update",
	OperationQuerySpecific:     "market-data-query-specific",
	OperationQueryConsolidated: "market-data-query-consolidated",
	OperationQueryBatch:        "market-data-query-consolidated-batch",
	OperationDelete:            "market-data-delete",
}

var operationNames = [...]string{
	OperationUpdate:            "update",
	OperationQuerySpecific:     "query_specific",
	OperationQueryConsolidated: "query_consolidated",
	OperationQueryBatch:        "query_batch",
	OperationDelete:            "delete",
}

func (o Operation) IsAvailable() bool {
	return o > _op_beg && o < _op_end
}

// IsMutation reports whether o writes to the store.
func (o Operation) IsMutation() bool {
	return o == OperationUpdate || o == OperationDelete
}

// Topic returns the command channel of o, or "" when o is unknown.
func (o Operation) Topic() string {
	if !o.IsAvailable() {
		return ""
	}
	return operationTopics[o]
}

func (o Operation) String() string {
	if !o.IsAvailable() {
		return "unknown"
	}
	return operationNames[o]
}

// Operations lists every available operation in declaration order.
func Operations() []Operation {
	ops := make([]Operation, 0, int(_op_end-_op_beg)-1)
	for o := _op_beg + 1; o < _op_end; o++ {
		ops = append(ops, o)
	}
	return ops
}

// CommandTopics lists the command channel of every operation.
func CommandTopics() []string {
	ops := Operations()
	topics := make([]string, 0, len(ops))
	for _, o := range ops {
		topics = append(topics, o.Topic())
	}
	return topics
}
