package protocol

import (
	"parley/pkg/types"
)

// Outbound frames. Each constructor stamps the type discriminator so a
// frame can never go out with the wrong tag.

type UserInfoFrame struct {
	Type string           `json:"type"`
	User types.PublicUser `json:"user"`
}

func NewUserInfo(u types.PublicUser) UserInfoFrame {
	return UserInfoFrame{Type: TypeUserInfo, User: u}
}

type SystemFrame struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

func NewSystem(text string) SystemFrame {
	return SystemFrame{Type: TypeSystem, Text: text}
}

type UsersUpdateFrame struct {
	Type  string             `json:"type"`
	Users []types.PublicUser `json:"users"`
}

func NewUsersUpdate(users []types.PublicUser) UsersUpdateFrame {
	return UsersUpdateFrame{Type: TypeUsersUpdate, Users: users}
}

type HistoryFrame struct {
	Type     string              `json:"type"`
	Messages []types.ChatMessage `json:"messages"`
}

func NewHistory(messages []types.ChatMessage) HistoryFrame {
	return HistoryFrame{Type: TypeHistory, Messages: messages}
}

type UserJoinedFrame struct {
	Type string           `json:"type"`
	User types.PublicUser `json:"user"`
}

func NewUserJoined(u types.PublicUser) UserJoinedFrame {
	return UserJoinedFrame{Type: TypeUserJoined, User: u}
}

type UserLeftFrame struct {
	Type string `json:"type"`
	ID   string `json:"id"`
	Name string `json:"name"`
}

func NewUserLeft(id, name string) UserLeftFrame {
	return UserLeftFrame{Type: TypeUserLeft, ID: id, Name: name}
}

type MessageFrame struct {
	Type    string            `json:"type"`
	Message types.ChatMessage `json:"message"`
}

func NewMessage(msg types.ChatMessage) MessageFrame {
	return MessageFrame{Type: TypeMessage, Message: msg}
}

type TypingFrame struct {
	Type       string `json:"type"`
	SenderID   string `json:"senderId"`
	SenderName string `json:"senderName"`
	IsTyping   bool   `json:"isTyping"`
}

func NewTyping(senderID, senderName string, isTyping bool) TypingFrame {
	return TypingFrame{Type: TypeTyping, SenderID: senderID, SenderName: senderName, IsTyping: isTyping}
}

type OlderMessagesFrame struct {
	Type     string              `json:"type"`
	Messages []types.ChatMessage `json:"messages"`
	HasMore  bool                `json:"hasMore"`
}

func NewOlderMessages(messages []types.ChatMessage, hasMore bool) OlderMessagesFrame {
	return OlderMessagesFrame{Type: TypeOlderMessages, Messages: messages, HasMore: hasMore}
}
