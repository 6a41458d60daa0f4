package handlers

import (
	"encoding/base64"
	"encoding/json"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
)

// Message levels, also used as CSS classes.
const (
	LevelInfo    = "info"
	LevelSuccess = "success"
	LevelWarning = "warning"
	LevelError   = "error"
)

const (
	messagesCookieName = "messages"
	messagesLocalKey   = "flash_messages"
)

// Message is a one-time notice shown on the next rendered page.
type Message struct {
	Level string `json:"level"`
	Text  string `json:"text"`
}

type messageStore struct {
	pending    []Message
	fromCookie bool
}

// MessagesMiddleware loads pending flash messages from their cookie and, once
// the request is handled, writes back whatever was not displayed.
func MessagesMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		store := &messageStore{}
		if raw := c.Cookies(messagesCookieName); raw != "" {
			store.fromCookie = true
			store.pending = decodeMessages(raw)
		}
		c.Locals(messagesLocalKey, store)

		err := c.Next()

		switch {
		case len(store.pending) > 0:
			value, encErr := encodeMessages(store.pending)
			if encErr != nil {
				log.Warnf("Failed to encode flash messages: %v", encErr)
				break
			}
			c.Cookie(&fiber.Cookie{
				Name:     messagesCookieName,
				Value:    value,
				Path:     "/",
				HTTPOnly: true,
				Secure:   isSecureRequest(c),
				SameSite: fiber.CookieSameSiteLaxMode,
			})
		case store.fromCookie:
			c.Cookie(&fiber.Cookie{
				Name:     messagesCookieName,
				Value:    "",
				Path:     "/",
				Expires:  time.Now().Add(-time.Hour),
				HTTPOnly: true,
				SameSite: fiber.CookieSameSiteLaxMode,
			})
		}
		return err
	}
}

// AddMessage queues a flash message for the next rendered page.
func AddMessage(c *fiber.Ctx, level, text string) {
	store, ok := c.Locals(messagesLocalKey).(*messageStore)
	if !ok {
		log.Debugf("Flash message dropped, middleware not installed: %s", text)
		return
	}
	store.pending = append(store.pending, Message{Level: level, Text: text})
}

// Messages returns the pending flash messages and marks them as displayed.
func Messages(c *fiber.Ctx) []Message {
	store, ok := c.Locals(messagesLocalKey).(*messageStore)
	if !ok {
		return nil
	}
	messages := store.pending
	store.pending = nil
	return messages
}

func encodeMessages(messages []Message) (string, error) {
	data, err := json.Marshal(messages)
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(data), nil
}

func decodeMessages(raw string) []Message {
	data, err := base64.RawURLEncoding.DecodeString(raw)
	if err != nil {
		log.Debugf("Ignoring malformed flash cookie: %v", err)
		return nil
	}
	var messages []Message
	if err := json.Unmarshal(data, &messages); err != nil {
		log.Debugf("Ignoring malformed flash cookie: %v", err)
		return nil
	}
	return messages
}
