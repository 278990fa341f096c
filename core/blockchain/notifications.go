// Copyright (c) 2025 The luna developers
// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

// NotificationType represents the type of a notification message.
type NotificationType int

// NotificationCallback is used for a caller to provide a callback for
// notifications about various chain events.
type NotificationCallback func(*Notification)

// Constants for the type of a notification message.
const (
	// BlockAccepted indicates the associated block was accepted into the
	// block chain.  Note that this does not necessarily mean it was added
	// to the main chain.  For that, use BlockConnected.
	BlockAccepted NotificationType = iota

	// BlockConnected indicates the associated block was connected to the
	// main chain.
	BlockConnected

	// BlockDisconnected indicates the associated block was disconnected
	// from the main chain.
	BlockDisconnected

	// ReorganizeDone indicates a chain reorganization finished and the
	// associated block is the new canonical tip.
	ReorganizeDone
)

// notificationTypeStrings is a map of notification types back to their
// constant names for pretty printing.
var notificationTypeStrings = map[NotificationType]string{
	BlockAccepted:     "BlockAccepted",
	BlockConnected:    "BlockConnected",
	BlockDisconnected: "BlockDisconnected",
	ReorganizeDone:    "ReorganizeDone",
}

// String returns the NotificationType in human-readable form.
func (n NotificationType) String() string {
	if s, ok := notificationTypeStrings[n]; ok {
		return s
	}
	return "Unknown Notification Type"
}

// Notification defines notification that is sent to the caller via the
// callback function provided during the call to New and consists of a
// notification type as well as associated data that depends on the type as
// follows:
//  - BlockAccepted:     *types.SerializedBlock
//  - BlockConnected:    *types.SerializedBlock
//  - BlockDisconnected: *types.SerializedBlock
//  - ReorganizeDone:    *types.SerializedBlock
type Notification struct {
	Type NotificationType
	Data interface{}
}

// sendNotification queues a notification with the passed type and data if the
// caller requested notifications by providing a callback function in the call
// to New.  Queued notifications are delivered by flushNotifications after the
// chain lock is released, so callbacks are free to call back into the chain;
// the mempool does exactly that while validating admissions.
//
// This function MUST be called with the chain lock held (for writes).
func (b *BlockChain) sendNotification(typ NotificationType, data interface{}) {
	if b.notifications == nil {
		return
	}
	b.pendingNotes = append(b.pendingNotes, &Notification{
		Type: typ,
		Data: data,
	})
}

// flushNotifications delivers every queued notification in the order it was
// generated.  The queue is drained while the chain lock is still held; the
// callbacks run after it is released.
//
// This function MUST be called WITHOUT the chain lock held.
func (b *BlockChain) flushNotifications(notes []*Notification) {
	for _, n := range notes {
		b.notifications(n)
	}
}
