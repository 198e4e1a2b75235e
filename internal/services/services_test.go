package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sharyinets/gatekeeper/internal/api/apitest"
	"sharyinets/gatekeeper/internal/chats"
	"sharyinets/gatekeeper/internal/store"
)

type memStore struct {
	users []store.User
}

func (m *memStore) AddUser(_ context.Context, u store.User) error {
	for i, existing := range m.users {
		if existing.UserID == u.UserID && existing.ChatID == u.ChatID {
			m.users[i].Username, m.users[i].FullName = u.Username, u.FullName
			return nil
		}
	}
	m.users = append(m.users, u)
	return nil
}

func (m *memStore) RemoveUser(_ context.Context, chatID, userID int64) error {
	kept := m.users[:0]
	for _, u := range m.users {
		if u.ChatID != chatID || u.UserID != userID {
			kept = append(kept, u)
		}
	}
	m.users = kept
	return nil
}

func (m *memStore) UsersInChat(_ context.Context, chatID int64) ([]store.User, error) {
	var out []store.User
	for _, u := range m.users {
		if u.ChatID == chatID {
			out = append(out, u)
		}
	}
	return out, nil
}

const (
	inviting = int64(-100)
	invited  = int64(-200)
	botID    = int64(999)
)

func TestRememberSkipsBots(t *testing.T) {
	st := &memStore{}
	svc := NewMembers(apitest.New(), st)
	ctx := context.Background()

	require.NoError(t, svc.Remember(ctx, invited, &tgbotapi.User{ID: 1, FirstName: "Anna", LastName: "K", UserName: "anna"}))
	require.NoError(t, svc.Remember(ctx, invited, &tgbotapi.User{ID: 2, IsBot: true}))
	require.NoError(t, svc.Remember(ctx, invited, nil))

	require.Len(t, st.users, 1)
	assert.Equal(t, "Anna K", st.users[0].FullName)

	require.NoError(t, svc.Forget(ctx, invited, 1))
	assert.Empty(t, st.users)
}

func TestSyncAdministrators(t *testing.T) {
	fake := apitest.New()
	fake.Admins[invited] = []tgbotapi.ChatMember{
		{User: &tgbotapi.User{ID: 1, FirstName: "Owner"}, Status: "creator"},
		{User: &tgbotapi.User{ID: botID, IsBot: true}, Status: "administrator"},
		{User: &tgbotapi.User{ID: 3, FirstName: "Mod"}, Status: "administrator"},
	}
	st := &memStore{}
	svc := NewMembers(fake, st)

	n, err := svc.SyncAdministrators(context.Background(), invited)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Len(t, st.users, 2)

	_, err = svc.SyncAdministrators(context.Background(), -1)
	require.Error(t, err)
}

func TestMentions(t *testing.T) {
	st := &memStore{users: []store.User{
		{UserID: 1, Username: "anna", ChatID: invited},
		{UserID: 2, FullName: "Борис <Б>", ChatID: invited},
		{UserID: 3, ChatID: invited},
		{UserID: 4, Username: "other", ChatID: inviting},
	}}
	svc := NewMembers(apitest.New(), st)

	got, err := svc.Mentions(context.Background(), invited)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"@anna",
		`<a href="tg://user?id=2">Борис &lt;Б&gt;</a>`,
		`<a href="tg://user?id=3">участник</a>`,
	}, got)
}

func TestAnnouncementSingleMessage(t *testing.T) {
	got := Announcement([]string{"@a", "@b"}, "шашлыки в субботу", MessageLimit)
	assert.Equal(t, []string{"@a @b, шашлыки в субботу"}, got)
}

func TestAnnouncementWithoutMentions(t *testing.T) {
	assert.Equal(t, []string{"a &amp; b"}, Announcement(nil, "a & b", MessageLimit))
}

func TestAnnouncementChunks(t *testing.T) {
	mentions := make([]string, 0, 10)
	for i := 0; i < 10; i++ {
		mentions = append(mentions, "@user"+strings.Repeat("x", 3)+string(rune('a'+i)))
	}
	// each mention is 9 runes, so 3 fit per 30-rune message
	got := Announcement(mentions, "go", 30)
	require.Len(t, got, 4)
	for _, chunk := range got {
		assert.LessOrEqual(t, utf8.RuneCountInString(chunk), 30)
	}
	assert.Equal(t, "@userxxxj, go", got[3])
}

func TestAnnouncementTailOverflows(t *testing.T) {
	got := Announcement([]string{"@abcdefgh"}, strings.Repeat("z", 10), 15)
	assert.Equal(t, []string{"@abcdefgh", strings.Repeat("z", 10)}, got)
}

func newInviteFixture() (*apitest.Fake, *InviteService) {
	fake := apitest.New()
	fake.SetMember(invited, botID, "administrator")
	fake.Links[invited] = "https://t.me/+abc"
	return fake, NewInvites(fake, chats.New(inviting, invited), botID)
}

func TestInviteIssued(t *testing.T) {
	fake, svc := newInviteFixture()
	fake.SetMember(inviting, 5, "member")

	link, err := svc.Issue(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, "https://t.me/+abc", link)
}

func TestInviteRequiresMembership(t *testing.T) {
	fake, svc := newInviteFixture()

	_, err := svc.Issue(context.Background(), 5)
	require.ErrorIs(t, err, ErrNotMember)

	fake.SetMember(inviting, 5, "left")
	_, err = svc.Issue(context.Background(), 5)
	require.ErrorIs(t, err, ErrNotMember)
}

func TestInviteMembershipLookupFailure(t *testing.T) {
	fake, svc := newInviteFixture()
	fake.SetMember(inviting, 5, "member")
	fake.MemberErr[inviting] = errors.New("dial tcp: i/o timeout")

	_, err := svc.Issue(context.Background(), 5)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotMember)
	assert.ErrorContains(t, err, "i/o timeout")
}

func TestInviteOtherAPIErrorIsNotMembership(t *testing.T) {
	fake, svc := newInviteFixture()
	fake.MemberErr[inviting] = &tgbotapi.Error{Code: 400, Message: "Bad Request: chat not found"}

	_, err := svc.Issue(context.Background(), 5)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotMember)
}

func TestInviteCancelled(t *testing.T) {
	_, svc := newInviteFixture()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.Issue(ctx, 5)
	require.ErrorIs(t, err, context.Canceled)
}

func TestInviteRequiresBotAdmin(t *testing.T) {
	fake, svc := newInviteFixture()
	fake.SetMember(invited, botID, "member")
	fake.SetMember(inviting, 5, "member")

	_, err := svc.Issue(context.Background(), 5)
	require.ErrorIs(t, err, ErrBotNotAdmin)
}

func TestInviteRequiresConfiguredChats(t *testing.T) {
	svc := NewInvites(apitest.New(), chats.New(0, invited), botID)
	_, err := svc.Issue(context.Background(), 5)
	require.ErrorIs(t, err, ErrNotConfigured)
}

func TestIsMemberRestricted(t *testing.T) {
	assert.True(t, isMember(tgbotapi.ChatMember{Status: "restricted", IsMember: true}))
	assert.False(t, isMember(tgbotapi.ChatMember{Status: "restricted"}))
	assert.False(t, isMember(tgbotapi.ChatMember{Status: "kicked"}))
}

func TestIsDeparture(t *testing.T) {
	assert.True(t, IsDeparture("Я уехал"))
	assert.True(t, IsDeparture("  я УЕХАЛ "))
	assert.False(t, IsDeparture("я уехал домой"))
}

func TestMute(t *testing.T) {
	fake := apitest.New()
	svc := NewDeparture(fake, time.Minute)
	now := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	until, err := svc.Mute(context.Background(), invited, 5)
	require.NoError(t, err)
	assert.Equal(t, now.Add(time.Minute), until)

	reqs := apitest.RequestsOf[tgbotapi.RestrictChatMemberConfig](fake)
	require.Len(t, reqs, 1)
	assert.Equal(t, int64(5), reqs[0].UserID)
	assert.Equal(t, invited, reqs[0].ChatID)
	assert.Equal(t, until.Unix(), reqs[0].UntilDate)
	assert.False(t, reqs[0].Permissions.CanSendMessages)
}
