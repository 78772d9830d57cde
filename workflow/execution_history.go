package workflow

import (
	"sync"
	"time"
)

// NodeType names the kind of composition node.
type NodeType string

const (
	NodeTask       NodeType = "task"
	NodeSequential NodeType = "sequential"
	NodeParallel   NodeType = "parallel"
	NodeLoop       NodeType = "loop"
)

// ExecutionStatus represents the status of an execution
type ExecutionStatus string

const (
	// ExecutionStatusRunning indicates the execution is in progress
	ExecutionStatusRunning ExecutionStatus = "running"
	// ExecutionStatusCompleted indicates the execution completed successfully
	ExecutionStatusCompleted ExecutionStatus = "completed"
	// ExecutionStatusFailed indicates the execution failed
	ExecutionStatusFailed ExecutionStatus = "failed"
)

// NodeExecution records the execution of a single node. A node inside a
// loop is recorded once per iteration.
type NodeExecution struct {
	NodeID    string          `json:"node_id"`
	NodeType  NodeType        `json:"node_type"`
	Iteration int             `json:"iteration"`
	StartTime time.Time       `json:"start_time"`
	EndTime   time.Time       `json:"end_time"`
	Duration  time.Duration   `json:"duration"`
	Status    ExecutionStatus `json:"status"`
	Error     string          `json:"error,omitempty"`
}

// ExecutionHistory records the complete execution path of a run
type ExecutionHistory struct {
	ExecutionID string           `json:"execution_id"`
	WorkflowID  string           `json:"workflow_id"`
	StartTime   time.Time        `json:"start_time"`
	EndTime     time.Time        `json:"end_time"`
	Duration    time.Duration    `json:"duration"`
	Status      ExecutionStatus  `json:"status"`
	Nodes       []*NodeExecution `json:"nodes"`
	Error       string           `json:"error,omitempty"`
	mu          sync.RWMutex
}

// NewExecutionHistory creates a new execution history
func NewExecutionHistory(executionID, workflowID string) *ExecutionHistory {
	return &ExecutionHistory{
		ExecutionID: executionID,
		WorkflowID:  workflowID,
		StartTime:   time.Now(),
		Status:      ExecutionStatusRunning,
		Nodes:       make([]*NodeExecution, 0),
	}
}

// RecordNodeStart records the start of a node execution
func (h *ExecutionHistory) RecordNodeStart(nodeID string, nodeType NodeType, iteration int) *NodeExecution {
	h.mu.Lock()
	defer h.mu.Unlock()

	node := &NodeExecution{
		NodeID:    nodeID,
		NodeType:  nodeType,
		Iteration: iteration,
		StartTime: time.Now(),
		Status:    ExecutionStatusRunning,
	}
	h.Nodes = append(h.Nodes, node)
	return node
}

// RecordNodeEnd records the end of a node execution
func (h *ExecutionHistory) RecordNodeEnd(node *NodeExecution, err error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	node.EndTime = time.Now()
	node.Duration = node.EndTime.Sub(node.StartTime)

	if err != nil {
		node.Status = ExecutionStatusFailed
		node.Error = err.Error()
	} else {
		node.Status = ExecutionStatusCompleted
	}
}

// Complete marks the execution as completed
func (h *ExecutionHistory) Complete(err error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.EndTime = time.Now()
	h.Duration = h.EndTime.Sub(h.StartTime)

	if err != nil {
		h.Status = ExecutionStatusFailed
		h.Error = err.Error()
	} else {
		h.Status = ExecutionStatusCompleted
	}
}

// GetNodes returns a copy of the node executions
func (h *ExecutionHistory) GetNodes() []*NodeExecution {
	h.mu.RLock()
	defer h.mu.RUnlock()

	nodes := make([]*NodeExecution, len(h.Nodes))
	for i, n := range h.Nodes {
		cp := *n
		nodes[i] = &cp
	}
	return nodes
}

// GetNodesByID returns every execution record of a node, one per iteration.
func (h *ExecutionHistory) GetNodesByID(nodeID string) []*NodeExecution {
	h.mu.RLock()
	defer h.mu.RUnlock()

	var result []*NodeExecution
	for _, node := range h.Nodes {
		if node.NodeID == nodeID {
			cp := *node
			result = append(result, &cp)
		}
	}
	return result
}

// CountByStatus tallies node executions per status.
func (h *ExecutionHistory) CountByStatus() map[ExecutionStatus]int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	counts := make(map[ExecutionStatus]int)
	for _, node := range h.Nodes {
		counts[node.Status]++
	}
	return counts
}
