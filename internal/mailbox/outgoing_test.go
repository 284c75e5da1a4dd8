package mailbox

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOutgoingMessage_Validate(t *testing.T) {
	valid := OutgoingMessage{To: []string{"Ana <ana@example.com>"}, Subject: "Hi", Body: "Hello"}

	tests := []struct {
		name    string
		mutate  func(m *OutgoingMessage)
		wantErr bool
	}{
		{name: "valid", mutate: func(*OutgoingMessage) {}},
		{name: "no recipient", mutate: func(m *OutgoingMessage) { m.To = nil }, wantErr: true},
		{name: "blank subject", mutate: func(m *OutgoingMessage) { m.Subject = " " }, wantErr: true},
		{name: "blank body", mutate: func(m *OutgoingMessage) { m.Body = "" }, wantErr: true},
		{name: "bad cc", mutate: func(m *OutgoingMessage) { m.Cc = []string{"not an address"} }, wantErr: true},
		{name: "header injection", mutate: func(m *OutgoingMessage) { m.To = []string{"a@example.com\r\nBcc: x@example.com"} }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := valid
			tt.mutate(&m)
			err := m.Validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrInvalidMessage)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestSplitAddresses(t *testing.T) {
	assert.Equal(t, []string{"a@example.com", "b@example.com"}, SplitAddresses(" a@example.com, ,b@example.com "))
	assert.Nil(t, SplitAddresses(""))
}
