package ast

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Dump renders the tree as YAML. The driver writes this next to the input
// file before analysis runs.
func (n *Node) Dump() (string, error) {
	out, err := yaml.Marshal(n.yamlNode())
	if err != nil {
		return "", fmt.Errorf("marshaling AST dump: %w", err)
	}
	return string(out), nil
}

func scalar(value string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Value: value}
}

func nullNode() *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "~"}
}

func (n *Node) yamlNode() *yaml.Node {
	switch n.Kind {
	case KindLiteral:
		return scalar(n.Value.String())
	case KindVariable:
		return scalar(n.Name)
	case KindFormal:
		label := n.Name
		if n.Type != nil {
			label = n.Name + ": " + n.Type.String()
		}
		return scalar(label)
	}

	children := &yaml.Node{Kind: yaml.SequenceNode}
	for _, c := range n.Children {
		children.Content = append(children.Content, c.yamlNode())
	}
	if n.Kind == KindList && n.Tail() == nil {
		children.Content = append(children.Content, nullNode())
	}

	mapping := &yaml.Node{Kind: yaml.MappingNode}
	mapping.Content = append(mapping.Content, scalar(n.label()), children)
	return mapping
}

func (n *Node) label() string {
	switch n.Kind {
	case KindRoot:
		return "Root"
	case KindBinaryOp, KindUnaryOp, KindListOp:
		return n.Op.String()
	case KindFunctionCall:
		return n.Name
	case KindFunctionDefinition, KindExternFunction, KindLambda,
		KindVariableDefinition, KindSetExpression, KindIteratorDefinition:
		return fmt.Sprintf("%s(%s)", n.Kind, n.Name)
	default:
		return n.Kind.String()
	}
}
