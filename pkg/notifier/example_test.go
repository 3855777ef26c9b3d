package notifier_test

import (
	"context"
	"fmt"
	"log"

	"github.com/dmitrymomot/notifykit/pkg/audience"
	"github.com/dmitrymomot/notifykit/pkg/channel"
	"github.com/dmitrymomot/notifykit/pkg/dispatcher"
	"github.com/dmitrymomot/notifykit/pkg/logger"
	"github.com/dmitrymomot/notifykit/pkg/notifications"
	"github.com/dmitrymomot/notifykit/pkg/notifier"
	"github.com/dmitrymomot/notifykit/pkg/templates"
)

func ExampleService_Send() {
	ctx := context.Background()
	store := notifications.NewMemoryStorage()

	tmplStore, err := templates.NewMemoryStore(templates.Template{
		ID:       "early-dismissal",
		Body:     "School closes at {{time}} today.",
		IsActive: true,
	})
	if err != nil {
		log.Fatal(err)
	}

	dir := audience.NewMemoryDirectory()
	dir.SetGroup("grade-3a", "parent-1", "parent-2")

	book := dispatcher.NewMemoryAddressBook()
	book.Set("parent-1", notifications.ChannelSMS, "+15550100")
	book.Set("parent-2", notifications.ChannelSMS, "+15550101")

	disp, err := dispatcher.New(store, dispatcher.DefaultConfig(),
		dispatcher.WithTransport(notifications.ChannelSMS, channel.NewLogTransport(logger.Discard())),
		dispatcher.WithAddressBook(book),
		dispatcher.WithLogger(logger.Discard()),
	)
	if err != nil {
		log.Fatal(err)
	}

	svc := notifier.New(store,
		templates.NewResolver(tmplStore, templates.WithResolverLogger(logger.Discard())),
		audience.NewResolver(dir, audience.WithResolverLogger(logger.Discard())),
		disp,
		notifier.WithLogger(logger.Discard()),
	)

	res, err := svc.Send(ctx, notifier.Request{
		TemplateID: "early-dismissal",
		Variables:  map[string]string{"time": "12:30"},
		Target:     audience.Group("grade-3a"),
		Channels:   []notifications.Channel{notifications.ChannelSMS},
	})
	if err != nil {
		log.Fatal(err)
	}

	fmt.Println(res.Notification.Body)
	fmt.Println(len(res.Recipients), "recipients,", res.Report.Submitted, "queued")
	// Output:
	// School closes at 12:30 today.
	// 2 recipients, 2 queued
}
