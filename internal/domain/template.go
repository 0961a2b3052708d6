package domain

import (
	"encoding/json"
	"fmt"
)

// TemplateNodeKind discriminates the six TemplateNode variants of §3.
type TemplateNodeKind string

const (
	NodeApp                TemplateNodeKind = "app"
	NodeFunctionRef         TemplateNodeKind = "function_ref"
	NodeAsyncFunctionRef    TemplateNodeKind = "async_function_ref"
	NodeTopicPublishRef     TemplateNodeKind = "topic_publish_ref"
	NodeUIServiceContainer  TemplateNodeKind = "ui_service_container"
	NodeUIServiceMethod     TemplateNodeKind = "ui_service_method"
)

// TemplateNode is a tagged-union node of the AppTemplate tree. Exactly one
// of the six variants is populated per the value of Kind; JSON encoding
// follows the discriminated shape of spec §6 (discriminated by which keys
// are present, not by an explicit "kind" field in the wire format).
type TemplateNode struct {
	Kind TemplateNodeKind

	// App / UiServiceContainer / UiServiceMethod
	Name     string
	Children []*TemplateNode

	// FunctionRef / AsyncFunctionRef
	Ref string

	// AsyncFunctionRef / TopicPublishRef
	QueueName string

	// TopicPublishRef
	TopicName string
}

// NewAppNode constructs the App{name, children} root.
func NewAppNode(name string) *TemplateNode {
	return &TemplateNode{Kind: NodeApp, Name: name}
}

// NewFunctionRefNode constructs a sync FunctionRef leaf.
func NewFunctionRefNode(ref string) *TemplateNode {
	return &TemplateNode{Kind: NodeFunctionRef, Ref: ref}
}

// NewAsyncFunctionRefNode constructs an AsyncFunctionRef leaf.
func NewAsyncFunctionRefNode(ref, queueName string) *TemplateNode {
	return &TemplateNode{Kind: NodeAsyncFunctionRef, Ref: ref, QueueName: queueName}
}

// NewTopicPublishRefNode constructs a TopicPublishRef leaf.
func NewTopicPublishRefNode(topicName, queueName string) *TemplateNode {
	return &TemplateNode{Kind: NodeTopicPublishRef, TopicName: topicName, QueueName: queueName}
}

// NewUIServiceContainerNode constructs a UiServiceContainer{serviceId, children}.
func NewUIServiceContainerNode(serviceID string) *TemplateNode {
	return &TemplateNode{Kind: NodeUIServiceContainer, Name: serviceID}
}

// NewUIServiceMethodNode constructs a UiServiceMethod{name, children}.
func NewUIServiceMethodNode(name string) *TemplateNode {
	return &TemplateNode{Kind: NodeUIServiceMethod, Name: name}
}

// AddChild appends child to an App/UiServiceContainer/UiServiceMethod node.
func (n *TemplateNode) AddChild(child *TemplateNode) {
	n.Children = append(n.Children, child)
}

// MarshalJSON emits the discriminated wire shape of §6.
func (n *TemplateNode) MarshalJSON() ([]byte, error) {
	switch n.Kind {
	case NodeApp:
		return json.Marshal(struct {
			Name     string          `json:"name"`
			Type     string          `json:"type"`
			Children []*TemplateNode `json:"children"`
		}{n.Name, "app", childrenOrEmpty(n.Children)})
	case NodeFunctionRef:
		return json.Marshal(struct {
			Ref string `json:"ref"`
		}{n.Ref})
	case NodeAsyncFunctionRef:
		return json.Marshal(struct {
			Ref       string `json:"ref"`
			Async     bool   `json:"async"`
			QueueName string `json:"queueName"`
		}{n.Ref, true, n.QueueName})
	case NodeTopicPublishRef:
		return json.Marshal(struct {
			TopicName    string `json:"topicName"`
			TopicPublish bool   `json:"topicPublish"`
			QueueName    string `json:"queueName"`
		}{n.TopicName, true, n.QueueName})
	case NodeUIServiceContainer:
		return json.Marshal(struct {
			Name     string          `json:"name"`
			Type     string          `json:"type"`
			Children []*TemplateNode `json:"children"`
		}{n.Name, "ui-services", childrenOrEmpty(n.Children)})
	case NodeUIServiceMethod:
		return json.Marshal(struct {
			Name     string          `json:"name"`
			Type     string          `json:"type"`
			Children []*TemplateNode `json:"children"`
		}{n.Name, "ui-service-method", childrenOrEmpty(n.Children)})
	default:
		return nil, fmt.Errorf("domain: unknown TemplateNode kind %q", n.Kind)
	}
}

func childrenOrEmpty(c []*TemplateNode) []*TemplateNode {
	if c == nil {
		return []*TemplateNode{}
	}
	return c
}

// UnmarshalJSON reconstructs a TemplateNode from the discriminated wire
// shape, inferring the variant from which keys are present.
func (n *TemplateNode) UnmarshalJSON(data []byte) error {
	var probe struct {
		Name         *string         `json:"name"`
		Type         *string         `json:"type"`
		Children     []*TemplateNode `json:"children"`
		Ref          *string         `json:"ref"`
		Async        *bool           `json:"async"`
		QueueName    *string         `json:"queueName"`
		TopicName    *string         `json:"topicName"`
		TopicPublish *bool           `json:"topicPublish"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return err
	}

	switch {
	case probe.TopicName != nil:
		n.Kind = NodeTopicPublishRef
		n.TopicName = *probe.TopicName
		if probe.QueueName != nil {
			n.QueueName = *probe.QueueName
		}
	case probe.Ref != nil && probe.Async != nil && *probe.Async:
		n.Kind = NodeAsyncFunctionRef
		n.Ref = *probe.Ref
		if probe.QueueName != nil {
			n.QueueName = *probe.QueueName
		}
	case probe.Ref != nil:
		n.Kind = NodeFunctionRef
		n.Ref = *probe.Ref
	case probe.Type != nil && *probe.Type == "ui-services":
		n.Kind = NodeUIServiceContainer
		n.Name = derefOr(probe.Name, "")
		n.Children = probe.Children
	case probe.Type != nil && *probe.Type == "ui-service-method":
		n.Kind = NodeUIServiceMethod
		n.Name = derefOr(probe.Name, "")
		n.Children = probe.Children
	case probe.Type != nil && *probe.Type == "app":
		n.Kind = NodeApp
		n.Name = derefOr(probe.Name, "")
		n.Children = probe.Children
	default:
		return fmt.Errorf("domain: cannot determine TemplateNode variant from JSON")
	}
	return nil
}

func derefOr(s *string, def string) string {
	if s == nil {
		return def
	}
	return *s
}

// AppTemplate is the tree rooted at the App node.
type AppTemplate struct {
	Root *TemplateNode
}

func (t *AppTemplate) MarshalJSON() ([]byte, error) {
	if t == nil || t.Root == nil {
		return json.Marshal(NewAppNode(""))
	}
	return json.Marshal(t.Root)
}

func (t *AppTemplate) UnmarshalJSON(data []byte) error {
	t.Root = &TemplateNode{}
	return json.Unmarshal(data, t.Root)
}
