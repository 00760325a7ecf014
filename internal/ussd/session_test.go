package ussd

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingRegistrar struct {
	phones []string
}

func (r *recordingRegistrar) Register(phone string) {
	r.phones = append(r.phones, phone)
}

func TestGetOrCreateStartsAtLanguageSelect(t *testing.T) {
	s := NewMemorySessionStore(time.Minute, nil)
	defer s.Close()

	sess, created := s.GetOrCreate("+255700000001")
	require.True(t, created)
	assert.IsType(t, LanguageSelect{}, sess.State)
	assert.Equal(t, DefaultLocale, sess.Locale)

	again, created := s.GetOrCreate("+255700000001")
	assert.False(t, created)
	assert.Same(t, sess, again)
}

func TestGetOrCreateRegistersOnlyOnCreate(t *testing.T) {
	reg := &recordingRegistrar{}
	s := NewMemorySessionStore(time.Minute, reg)
	defer s.Close()

	s.GetOrCreate("+255700000001")
	s.GetOrCreate("+255700000001")
	assert.Equal(t, []string{"+255700000001"}, reg.phones)
}

func TestLazyExpiryReplacesIdleSession(t *testing.T) {
	s := NewMemorySessionStore(10*time.Millisecond, nil)
	defer s.Close()

	sess, _ := s.GetOrCreate("+255700000001")
	sess.State = Main{}
	time.Sleep(30 * time.Millisecond)

	fresh, created := s.GetOrCreate("+255700000001")
	assert.True(t, created)
	assert.IsType(t, LanguageSelect{}, fresh.State)
}

func TestDeleteIsIdempotent(t *testing.T) {
	s := NewMemorySessionStore(time.Minute, nil)
	defer s.Close()

	s.GetOrCreate("+255700000001")
	s.Delete("+255700000001")
	s.Delete("+255700000001")
	assert.Equal(t, 0, s.Len())
}

func TestSweepRemovesIdleSessions(t *testing.T) {
	s := NewMemorySessionStore(20*time.Millisecond, nil)
	defer s.Close()

	s.GetOrCreate("+255700000001")
	s.GetOrCreate("+255700000002")
	require.Equal(t, 2, s.Len())

	assert.Eventually(t, func() bool {
		return s.Len() == 0
	}, 5*time.Second, 50*time.Millisecond)
}

func TestTouchExtendsLifetime(t *testing.T) {
	s := NewMemorySessionStore(60*time.Millisecond, nil)
	defer s.Close()

	sess, _ := s.GetOrCreate("+255700000001")
	for i := 0; i < 4; i++ {
		time.Sleep(30 * time.Millisecond)
		s.Touch(sess)
	}

	_, created := s.GetOrCreate("+255700000001")
	assert.False(t, created)
}
