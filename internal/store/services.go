package store

// Service accessors group Client methods by table. Each service embeds
// *Client so callers can hold a single client and reach every table.

type ConversationsService struct{ *Client }

type MessagesService struct{ *Client }

type ProfilesService struct{ *Client }

type InvitationsService struct{ *Client }

// Table names in the hosted store.
const (
	TableProfiles      = "profiles"
	TableConversations = "tb_conversations"
	TableMessages      = "tb_messages"
	TableInvitations   = "user_invitations"
)

// Conversations returns the conversations service.
func (c *Client) Conversations() ConversationsService { return ConversationsService{c} }

// Messages returns the messages service.
func (c *Client) Messages() MessagesService { return MessagesService{c} }

// Profiles returns the profiles service.
func (c *Client) Profiles() ProfilesService { return ProfilesService{c} }

// Invitations returns the invitations service.
func (c *Client) Invitations() InvitationsService { return InvitationsService{c} }
