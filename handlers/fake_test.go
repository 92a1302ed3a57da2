package handlers

import (
	"errors"
	"io"
	"log/slog"
	"slices"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"

	"prismbot/config"
	"prismbot/state"
)

var errNotFound = errors.New("HTTP 404 Not Found")

type sent struct {
	ChannelID string
	Content   string
	Embeds    []*discordgo.MessageEmbed
	MessageID string
	Reference *discordgo.MessageReference
	Buttons   []string
}

type roleChange struct {
	UserID string
	RoleID string
}

type response struct {
	Type      discordgo.InteractionResponseType
	Content   string
	CustomID  string
	Ephemeral bool
}

// fakeAPI records every call the handlers make and keeps just enough guild
// state for role and channel lookups.
type fakeAPI struct {
	mu     sync.Mutex
	nextID int

	members   map[string]*discordgo.Member
	roles     []*discordgo.Role
	channels  map[string]*discordgo.Channel
	messages  map[string]*discordgo.Message
	reactions map[string][]*discordgo.User

	sent            []sent
	responses       []response
	followups       []string
	roleAdds        []roleChange
	roleRemoves     []roleChange
	reacted         []string
	deletedMessages []string
	deletedChannels []string
	createdChannels []discordgo.GuildChannelCreateData
	edits           []*discordgo.MessageEdit
	permissionSets  []string
	timeouts        map[string]*time.Time

	failDM bool
	// afterEmbed runs once an embed has been posted, outside the lock.
	afterEmbed func(channelID string)
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		members:   make(map[string]*discordgo.Member),
		channels:  make(map[string]*discordgo.Channel),
		messages:  make(map[string]*discordgo.Message),
		reactions: make(map[string][]*discordgo.User),
		timeouts:  make(map[string]*time.Time),
	}
}

func (f *fakeAPI) addMember(userID string, roles ...string) *discordgo.Member {
	f.mu.Lock()
	defer f.mu.Unlock()
	m := &discordgo.Member{
		GuildID: "g1",
		User:    &discordgo.User{ID: userID, Username: "user" + userID},
		Roles:   roles,
	}
	f.members[userID] = m
	return m
}

func (f *fakeAPI) id() string {
	f.nextID++
	return "m" + strconv.Itoa(f.nextID)
}

func (f *fakeAPI) record(channelID string, ms *discordgo.MessageSend) *discordgo.Message {
	msg := &discordgo.Message{
		ID:        f.id(),
		ChannelID: channelID,
		Content:   ms.Content,
		Embeds:    ms.Embeds,
		Author:    &discordgo.User{ID: "bot", Bot: true},
	}
	f.messages[msg.ID] = msg
	s := sent{ChannelID: channelID, Content: ms.Content, Embeds: ms.Embeds, MessageID: msg.ID, Reference: ms.Reference}
	for _, row := range ms.Components {
		r, ok := row.(discordgo.ActionsRow)
		if !ok {
			continue
		}
		for _, comp := range r.Components {
			if b, ok := comp.(discordgo.Button); ok {
				s.Buttons = append(s.Buttons, b.CustomID)
			}
		}
	}
	f.sent = append(f.sent, s)
	return msg
}

// sentTo returns what was posted in channelID, oldest first.
func (f *fakeAPI) sentTo(channelID string) []sent {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []sent
	for _, s := range f.sent {
		if s.ChannelID == channelID {
			out = append(out, s)
		}
	}
	return out
}

func (f *fakeAPI) lastResponse(t *testing.T) response {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.responses) == 0 {
		t.Fatal("no interaction response recorded")
	}
	return f.responses[len(f.responses)-1]
}

func (f *fakeAPI) User(userID string, _ ...discordgo.RequestOption) (*discordgo.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if m, ok := f.members[userID]; ok {
		return m.User, nil
	}
	return nil, errNotFound
}

func (f *fakeAPI) UserChannelCreate(recipientID string, _ ...discordgo.RequestOption) (*discordgo.Channel, error) {
	if f.failDM {
		return nil, errors.New("HTTP 403 Forbidden")
	}
	return &discordgo.Channel{ID: "dm-" + recipientID, Type: discordgo.ChannelTypeDM}, nil
}

func (f *fakeAPI) Guild(guildID string, _ ...discordgo.RequestOption) (*discordgo.Guild, error) {
	return &discordgo.Guild{ID: guildID, Name: "Prism"}, nil
}

func (f *fakeAPI) GuildWithCounts(guildID string, _ ...discordgo.RequestOption) (*discordgo.Guild, error) {
	return &discordgo.Guild{ID: guildID, Name: "Prism", ApproximateMemberCount: len(f.members)}, nil
}

func (f *fakeAPI) GuildMember(_, userID string, _ ...discordgo.RequestOption) (*discordgo.Member, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.members[userID]
	if !ok {
		return nil, errNotFound
	}
	cp := *m
	cp.Roles = slices.Clone(m.Roles)
	return &cp, nil
}

func (f *fakeAPI) GuildRoles(string, ...discordgo.RequestOption) ([]*discordgo.Role, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.roles, nil
}

func (f *fakeAPI) GuildChannels(string, ...discordgo.RequestOption) ([]*discordgo.Channel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*discordgo.Channel, 0, len(f.channels))
	for _, ch := range f.channels {
		out = append(out, ch)
	}
	return out, nil
}

func (f *fakeAPI) GuildChannelCreateComplex(guildID string, data discordgo.GuildChannelCreateData, _ ...discordgo.RequestOption) (*discordgo.Channel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch := &discordgo.Channel{ID: "ch" + strconv.Itoa(len(f.createdChannels)+1), GuildID: guildID, Name: data.Name, ParentID: data.ParentID}
	f.channels[ch.ID] = ch
	f.createdChannels = append(f.createdChannels, data)
	return ch, nil
}

func (f *fakeAPI) GuildBanCreateWithReason(string, string, string, int, ...discordgo.RequestOption) error {
	return nil
}

func (f *fakeAPI) GuildMemberDeleteWithReason(_, userID, _ string, _ ...discordgo.RequestOption) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.members, userID)
	return nil
}

func (f *fakeAPI) GuildMemberTimeout(_ string, userID string, until *time.Time, _ ...discordgo.RequestOption) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.timeouts[userID] = until
	return nil
}

func (f *fakeAPI) GuildMemberRoleAdd(_, userID, roleID string, _ ...discordgo.RequestOption) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.roleAdds = append(f.roleAdds, roleChange{userID, roleID})
	if m, ok := f.members[userID]; ok && !slices.Contains(m.Roles, roleID) {
		m.Roles = append(m.Roles, roleID)
	}
	return nil
}

func (f *fakeAPI) GuildMemberRoleRemove(_, userID, roleID string, _ ...discordgo.RequestOption) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.roleRemoves = append(f.roleRemoves, roleChange{userID, roleID})
	if m, ok := f.members[userID]; ok {
		m.Roles = slices.DeleteFunc(m.Roles, func(r string) bool { return r == roleID })
	}
	return nil
}

func (f *fakeAPI) Channel(channelID string, _ ...discordgo.RequestOption) (*discordgo.Channel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if ch, ok := f.channels[channelID]; ok {
		return ch, nil
	}
	return nil, errNotFound
}

func (f *fakeAPI) ChannelDelete(channelID string, _ ...discordgo.RequestOption) (*discordgo.Channel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletedChannels = append(f.deletedChannels, channelID)
	delete(f.channels, channelID)
	return &discordgo.Channel{ID: channelID}, nil
}

func (f *fakeAPI) ChannelPermissionSet(channelID, targetID string, _ discordgo.PermissionOverwriteType, allow, deny int64, _ ...discordgo.RequestOption) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.permissionSets = append(f.permissionSets, channelID+"/"+targetID+"/"+strconv.FormatInt(allow, 10)+"/"+strconv.FormatInt(deny, 10))
	return nil
}

func (f *fakeAPI) ChannelMessages(channelID string, limit int, _, _, _ string, _ ...discordgo.RequestOption) ([]*discordgo.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*discordgo.Message
	for idx := len(f.sent) - 1; idx >= 0 && len(out) < limit; idx-- {
		if s := f.sent[idx]; s.ChannelID == channelID {
			out = append(out, f.messages[s.MessageID])
		}
	}
	return out, nil
}

func (f *fakeAPI) ChannelMessage(_, messageID string, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if m, ok := f.messages[messageID]; ok {
		return m, nil
	}
	return nil, errNotFound
}

func (f *fakeAPI) ChannelMessageSend(channelID string, content string, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.record(channelID, &discordgo.MessageSend{Content: content}), nil
}

func (f *fakeAPI) ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.record(channelID, data), nil
}

func (f *fakeAPI) ChannelMessageSendEmbed(channelID string, embed *discordgo.MessageEmbed, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.mu.Lock()
	msg := f.record(channelID, &discordgo.MessageSend{Embeds: []*discordgo.MessageEmbed{embed}})
	hook := f.afterEmbed
	f.mu.Unlock()
	if hook != nil {
		hook(channelID)
	}
	return msg, nil
}

func (f *fakeAPI) ChannelMessageEditComplex(m *discordgo.MessageEdit, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.edits = append(f.edits, m)
	return &discordgo.Message{ID: m.ID, ChannelID: m.Channel}, nil
}

func (f *fakeAPI) ChannelMessageDelete(_, messageID string, _ ...discordgo.RequestOption) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletedMessages = append(f.deletedMessages, messageID)
	return nil
}

func (f *fakeAPI) ChannelMessagesBulkDelete(_ string, messages []string, _ ...discordgo.RequestOption) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletedMessages = append(f.deletedMessages, messages...)
	return nil
}

func (f *fakeAPI) MessageReactionAdd(channelID, messageID, emojiID string, _ ...discordgo.RequestOption) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reacted = append(f.reacted, messageID+"/"+emojiID)
	return nil
}

func (f *fakeAPI) MessageReactions(_, messageID, _ string, limit int, _, afterID string, _ ...discordgo.RequestOption) ([]*discordgo.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	users := f.reactions[messageID]
	start := 0
	if afterID != "" {
		for idx, u := range users {
			if u.ID == afterID {
				start = idx + 1
				break
			}
		}
	}
	end := min(start+limit, len(users))
	return users[start:end], nil
}

func (f *fakeAPI) InteractionRespond(_ *discordgo.Interaction, resp *discordgo.InteractionResponse, _ ...discordgo.RequestOption) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	r := response{Type: resp.Type}
	if resp.Data != nil {
		r.Content = resp.Data.Content
		r.CustomID = resp.Data.CustomID
		r.Ephemeral = resp.Data.Flags&discordgo.MessageFlagsEphemeral != 0
	}
	f.responses = append(f.responses, r)
	return nil
}

func (f *fakeAPI) FollowupMessageCreate(_ *discordgo.Interaction, _ bool, data *discordgo.WebhookParams, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.followups = append(f.followups, data.Content)
	return &discordgo.Message{ID: f.id(), Content: data.Content}, nil
}

var _ API = (*fakeAPI)(nil)

func testConfig() *config.Config {
	return &config.Config{
		Discord: config.DiscordConfig{Token: "token", GuildID: "g1", Prefix: "!"},
		Channels: config.ChannelsConfig{
			StaffLog:     "staff-log",
			WarningStaff: "warn-staff",
			ReleaseLog:   "release-log",
			Session:      "session",
			Applications: "apps",
		},
		Roles: config.RolesConfig{
			Staff:         "r-staff",
			SessionHost:   "r-host",
			TicketAccess:  "r-access",
			Reviewer:      "r-review",
			WarningLevels: []string{"w1", "w2", "w3"},
		},
		Tickets: config.TicketsConfig{
			IdleThreshold: 24 * time.Hour,
			SweepInterval: time.Hour,
			CloseDelay:    5 * time.Second,
		},
		Sessions: config.SessionsConfig{
			PromptTimeout: time.Minute,
			ModalTimeout:  5 * time.Minute,
		},
		Applications: config.ApplicationsConfig{
			AnswerTimeout: time.Second,
			Questions:     []string{"Why do you want to join?", "How old are you?"},
		},
	}
}

type fixture struct {
	h   *Handler
	api *fakeAPI
	now time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{api: newFakeAPI(), now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
	store := state.New(state.WithClock(func() time.Time { return f.now }), state.WithRand(1, 2))
	f.h = New(Deps{
		API:    f.api,
		Store:  store,
		Config: testConfig(),
		Log:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	f.h.later = func(_ time.Duration, fn func()) { fn() }
	f.h.selfID = "bot"
	t.Cleanup(f.h.Close)
	return f
}

// say delivers a guild message from userID in channelID.
func (f *fixture) say(userID, channelID, content string) {
	var roles []string
	if m, ok := f.api.members[userID]; ok {
		roles = slices.Clone(m.Roles)
	}
	f.h.OnMessageCreate(&discordgo.MessageCreate{Message: &discordgo.Message{
		ID:        "in-" + content,
		GuildID:   "g1",
		ChannelID: channelID,
		Content:   content,
		Author:    &discordgo.User{ID: userID, Username: "user" + userID},
		Member:    &discordgo.Member{Roles: roles},
	}})
}

func (f *fixture) interact(userID string, typ discordgo.InteractionType, data discordgo.InteractionData) {
	var roles []string
	if m, ok := f.api.members[userID]; ok {
		roles = slices.Clone(m.Roles)
	}
	f.h.OnInteractionCreate(&discordgo.InteractionCreate{Interaction: &discordgo.Interaction{
		ID:        "i-" + userID,
		Type:      typ,
		GuildID:   "g1",
		ChannelID: "c1",
		Member: &discordgo.Member{
			User:  &discordgo.User{ID: userID, Username: "user" + userID},
			Roles: roles,
		},
		Data: data,
	}})
}

func (f *fixture) click(userID, customID string) {
	f.interact(userID, discordgo.InteractionMessageComponent, discordgo.MessageComponentInteractionData{CustomID: customID})
}

func (f *fixture) submit(userID, customID string, values map[string]string) {
	var rows []discordgo.MessageComponent
	for id, v := range values {
		rows = append(rows, &discordgo.ActionsRow{Components: []discordgo.MessageComponent{
			&discordgo.TextInput{CustomID: id, Value: v},
		}})
	}
	f.interact(userID, discordgo.InteractionModalSubmit, discordgo.ModalSubmitInteractionData{CustomID: customID, Components: rows})
}

func lastContent(t *testing.T, msgs []sent) string {
	t.Helper()
	if len(msgs) == 0 {
		t.Fatal("no messages sent")
	}
	return msgs[len(msgs)-1].Content
}
