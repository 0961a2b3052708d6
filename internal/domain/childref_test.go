package domain

import "testing"

func TestChildRef_IdentityKeyDistinguishesVariant(t *testing.T) {
	sync := NewFunctionChildRef("f")
	async := NewAsyncFunctionChildRef("f", "q1")
	topic := NewTopicChildRef("f", "q1")

	if sync.IdentityKey() == async.IdentityKey() {
		t.Fatal("sync and async refs sharing a name must have distinct identity keys")
	}
	if async.IdentityKey() == topic.IdentityKey() {
		t.Fatal("async and topic refs must have distinct identity keys")
	}
}

func TestChildRef_IdentityIgnoresQueueName(t *testing.T) {
	a := NewAsyncFunctionChildRef("f", "queueA")
	b := NewAsyncFunctionChildRef("f", "queueB")
	if a.IdentityKey() != b.IdentityKey() {
		t.Fatal("queueName must not affect identity")
	}
}

func TestFunctionPoolEntry_AddChildDedups(t *testing.T) {
	entry := NewFunctionPoolEntry("app1")
	if !entry.AddChild(NewFunctionChildRef("g")) {
		t.Fatal("expected first add to succeed")
	}
	if entry.AddChild(NewFunctionChildRef("g")) {
		t.Fatal("expected duplicate add to be suppressed")
	}
	if len(entry.Children) != 1 {
		t.Fatalf("expected 1 child, got %d", len(entry.Children))
	}
}

func TestFunctionPoolEntry_SyncAndAsyncCoexist(t *testing.T) {
	entry := NewFunctionPoolEntry("app1")
	entry.AddChild(NewFunctionChildRef("g"))
	entry.AddChild(NewAsyncFunctionChildRef("g", "q"))
	if len(entry.Children) != 2 {
		t.Fatalf("expected sync+async refs of the same name to coexist, got %d children", len(entry.Children))
	}
}

func TestChildRef_AsTemplateNodeRoundTrip(t *testing.T) {
	cases := []ChildRef{
		NewFunctionChildRef("g"),
		NewAsyncFunctionChildRef("g", "q"),
		NewTopicChildRef("t", "q"),
	}
	for _, c := range cases {
		node := c.AsTemplateNode()
		if node == nil {
			t.Fatalf("expected non-nil TemplateNode for %+v", c)
		}
		switch c.Kind {
		case ChildFunctionRef:
			if node.Kind != NodeFunctionRef || node.Ref != c.Ref {
				t.Errorf("mismatched function ref translation: %+v", node)
			}
		case ChildAsyncFunctionRef:
			if node.Kind != NodeAsyncFunctionRef || node.Ref != c.Ref || node.QueueName != c.QueueName {
				t.Errorf("mismatched async ref translation: %+v", node)
			}
		case ChildTopicPublishRef:
			if node.Kind != NodeTopicPublishRef || node.TopicName != c.TopicName || node.QueueName != c.QueueName {
				t.Errorf("mismatched topic ref translation: %+v", node)
			}
		}
	}
}
