// Package eventsub reads Twitch EventSub notifications over a WebSocket session.
//
// The session package drives the connection: it subscribes once the server
// welcomes the session, follows server-requested reconnects without
// subscribing again and routes notifications to the handlers registered per
// category. RunChatReader wires the pieces together for the common case of
// reading a channel's chat.
package eventsub
