package api

// Wire types for the chat service REST API. Field names follow the
// server's snake_case JSON.

type RegisterRequest struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
}

type RegisterResponse struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	Username string `json:"username"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
	UserID      string `json:"user_id"`
	Email       string `json:"email"`
}

type accessTokenResponse struct {
	AccessToken string `json:"access_token"`
}

type AuthInfo struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

type ProfileInfo struct {
	Username  string `json:"username"`
	CreatedAt string `json:"created_at"`
}

type FriendItem struct {
	FriendID  string `json:"friend_id"`
	Username  string `json:"username"`
	CreatedAt string `json:"created_at"`
}

type IncomingRequestItem struct {
	ID        string `json:"id"`
	SenderID  string `json:"sender_id"`
	Username  string `json:"username"`
	Status    string `json:"status"`
	CreatedAt string `json:"created_at"`
}

type OutgoingRequestItem struct {
	ID         string `json:"id"`
	ReceiverID string `json:"receiver_id"`
	Username   string `json:"username"`
	Status     string `json:"status"`
	CreatedAt  string `json:"created_at"`
}

// Me is the aggregate account view: identity, profile, friend graph.
type Me struct {
	Auth             AuthInfo              `json:"auth"`
	Profile          ProfileInfo           `json:"profile"`
	Friends          []FriendItem          `json:"friends"`
	IncomingRequests []IncomingRequestItem `json:"incoming_requests"`
	OutgoingRequests []OutgoingRequestItem `json:"outgoing_requests"`
}

type SearchUser struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

type SearchResponse struct {
	Usernames []SearchUser `json:"usernames"`
}

type FriendRequestDetail struct {
	ID         string `json:"id"`
	SenderID   string `json:"sender_id"`
	ReceiverID string `json:"receiver_id"`
	Status     string `json:"status"`
	CreatedAt  string `json:"created_at"`
}

type FriendRequestResponse struct {
	Message string              `json:"message"`
	Request FriendRequestDetail `json:"request"`
}

type AcceptFriendRequestResponse struct {
	FriendshipAccept bool `json:"friendship_accept"`
	Details          struct {
		FriendshipID string `json:"friendship_id"`
		SenderID     string `json:"sender_id"`
		ReceiverID   string `json:"receiver_id"`
		CreatedAt    string `json:"created_at"`
	} `json:"details"`
}

type DeclineFriendRequestResponse struct {
	RequestDeclined bool `json:"request_declined"`
}

type CancelFriendRequestResponse struct {
	RequestCanceled bool `json:"request_canceled"`
}

type RemoveFriendResponse struct {
	FriendRemoved bool `json:"friend_removed"`
}

type Conversation struct {
	ID        string `json:"id"`
	IsGroup   bool   `json:"is_group"`
	CreatedAt string `json:"created_at"`
}

type ConversationsResponse struct {
	Conversations []Conversation `json:"conversations"`
}

type DirectConversationResponse struct {
	ConversationID string `json:"conversation_id"`
	IsNew          bool   `json:"is_new"`
}

// Message is a server-confirmed chat message.
type Message struct {
	ID             string `json:"id"`
	SenderID       string `json:"sender_id"`
	SenderUsername string `json:"sender_username"`
	Content        string `json:"content"`
	CreatedAt      string `json:"created_at"`
}

type MessagesResponse struct {
	Messages []Message `json:"messages"`
}

// SentMessage is the send endpoint's echo of the stored message.
type SentMessage struct {
	ID             string `json:"id"`
	ConversationID string `json:"conversation_id"`
	SenderID       string `json:"sender_id"`
	Content        string `json:"content"`
	CreatedAt      string `json:"created_at"`
}

type SendMessageResponse struct {
	ResponseData []SentMessage `json:"response_data"`
}

type ParticipantInfo struct {
	ParticipantUsername string `json:"participant_username"`
	IsFriend            bool   `json:"is_friend"`
}
