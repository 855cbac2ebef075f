package actor

// testMsg is a minimal Message implementation shared by test files that
// just need a concrete message type to parameterize an actor behavior,
// carrying a single string payload.
type testMsg struct {
	BaseMessage

	data string
}

func newTestMsg(data string) *testMsg {
	return &testMsg{data: data}
}

func (m *testMsg) MessageType() string { return "testMsg" }
