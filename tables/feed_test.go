package tables_test

import (
	"context"
	"errors"
	"procurement/tables"
	"testing"
	"time"

	. "github.com/onsi/gomega"
)

func TestLocalFeed(t *testing.T) {
	RegisterTestingT(t)
	ctx := context.Background()

	t.Run("should deliver changes to subscribers of the table only", func(t *testing.T) {
		f := tables.NewLocalFeed()
		users, _ := f.Subscribe(ctx, "users")
		sectors, _ := f.Subscribe(ctx, "sectors")
		defer users.Close()
		defer sectors.Close()

		Expect(f.Publish(ctx, tables.NewChange("users", tables.ChangeUpdate))).To(BeNil())
		Eventually(users.C, time.Second).Should(Receive())
		Consistently(sectors.C, 50*time.Millisecond).ShouldNot(Receive())
	})

	t.Run("should coalesce changes that are not consumed yet", func(t *testing.T) {
		f := tables.NewLocalFeed()
		sub, _ := f.Subscribe(ctx, "users")
		defer sub.Close()

		for i := 0; i < 5; i++ {
			Expect(f.Publish(ctx, tables.NewChange("users", tables.ChangeInsert))).To(BeNil())
		}
		Expect(sub.C).To(Receive())
		Expect(sub.C).ToNot(Receive())
	})

	t.Run("should close channel and unregister on close", func(t *testing.T) {
		f := tables.NewLocalFeed()
		sub, _ := f.Subscribe(ctx, "users")
		Expect(f.SubscriberCount("users")).To(Equal(1))
		sub.Close()
		sub.Close()
		Expect(f.SubscriberCount("users")).To(Equal(0))
		Eventually(sub.C).Should(BeClosed())
	})
}

func TestErrorClassification(t *testing.T) {
	RegisterTestingT(t)

	Expect(tables.IsTableMissing(&tables.Error{Code: tables.CodeTableNotFound})).To(BeTrue())
	Expect(tables.IsTableMissing(&tables.Error{Code: tables.CodeUndefinedTable})).To(BeTrue())
	Expect(tables.IsTableMissing(&tables.Error{Code: "PGRST301"})).To(BeFalse())
	Expect(tables.IsTableMissing(errors.New("42P01"))).To(BeFalse())
	Expect(tables.IsTableMissing(nil)).To(BeFalse())

	cause := errors.New("connection refused")
	err := &tables.Error{Code: tables.CodeBackend, Message: "request failed", Cause: cause}
	Expect(errors.Is(err, cause)).To(BeTrue())
	Expect(err.Error()).To(Equal("backend: request failed"))
}
