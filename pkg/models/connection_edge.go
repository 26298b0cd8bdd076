package models

import "sort"

// DefaultPort is the port name used by the engine for regular data flow.
const DefaultPort = "main"

// ConnectionTarget is one endpoint entry in the engine's connection map.
type ConnectionTarget struct {
	Node  string `json:"node"`
	Type  string `json:"type"`
	Index int    `json:"index"`
}

// ConnectionMap is the engine-native connection layout:
// source node name -> source port -> output index -> targets.
type ConnectionMap map[string]map[string][][]ConnectionTarget

// ConnectionEdge is a single directed edge between two named nodes.
type ConnectionEdge struct {
	SourceNode  string `json:"source_node"`
	SourcePort  string `json:"source_port"`
	SourceIndex int    `json:"source_index"`
	TargetNode  string `json:"target_node"`
	TargetPort  string `json:"target_port"`
	TargetIndex int    `json:"target_index"`
}

// Edges flattens the map, ordered by source node, port and output index.
func (c ConnectionMap) Edges() []ConnectionEdge {
	sources := make([]string, 0, len(c))
	for source := range c {
		sources = append(sources, source)
	}

	sort.Strings(sources)

	edges := make([]ConnectionEdge, 0)

	for _, source := range sources {
		ports := make([]string, 0, len(c[source]))
		for port := range c[source] {
			ports = append(ports, port)
		}

		sort.Strings(ports)

		for _, port := range ports {
			for outputIndex, targets := range c[source][port] {
				for _, target := range targets {
					targetPort := target.Type
					if targetPort == "" {
						targetPort = DefaultPort
					}

					edges = append(edges, ConnectionEdge{
						SourceNode:  source,
						SourcePort:  port,
						SourceIndex: outputIndex,
						TargetNode:  target.Node,
						TargetPort:  targetPort,
						TargetIndex: target.Index,
					})
				}
			}
		}
	}

	return edges
}

// Connect appends an edge to the map.
func (c ConnectionMap) Connect(edge ConnectionEdge) {
	ports, ok := c[edge.SourceNode]
	if !ok {
		ports = map[string][][]ConnectionTarget{}
		c[edge.SourceNode] = ports
	}

	outputs := ports[edge.SourcePort]
	for len(outputs) <= edge.SourceIndex {
		outputs = append(outputs, []ConnectionTarget{})
	}

	outputs[edge.SourceIndex] = append(outputs[edge.SourceIndex], ConnectionTarget{
		Node:  edge.TargetNode,
		Type:  edge.TargetPort,
		Index: edge.TargetIndex,
	})
	ports[edge.SourcePort] = outputs
}

// InboundCount returns the number of edges targeting each node name.
func (c ConnectionMap) InboundCount() map[string]int {
	counts := make(map[string]int)
	for _, edge := range c.Edges() {
		counts[edge.TargetNode]++
	}

	return counts
}
