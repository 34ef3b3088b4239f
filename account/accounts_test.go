package account_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"procurement/account"
	"procurement/bizerror"
	"procurement/domain"
	"procurement/idgen"
	"procurement/session"
	"procurement/tables"
	"procurement/testinfra"
	"time"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

var _ = Describe("Service", func() {
	var (
		ctx     context.Context
		memory  *tables.MemoryClient
		client  *testinfra.RecordingClient
		slotDir string
		slot    *session.FileSlot
		service *account.Service
	)

	newService := func(opts account.Options) *account.Service {
		ids, err := idgen.NewGenerator(11)
		Expect(err).To(BeNil())
		opts.IDs = ids
		opts.Seed = true
		return account.NewService(ctx, client, slot, opts)
	}

	BeforeEach(func() {
		ctx = context.Background()
		memory = tables.NewMemoryClient(nil, domain.TableUsers, domain.TableSectors)
		client = testinfra.NewRecordingClient(memory)
		var err error
		slotDir, err = os.MkdirTemp("", "account")
		Expect(err).To(BeNil())
		slot = &session.FileSlot{Dir: slotDir}
		service = newService(account.Options{})
	})
	AfterEach(func() {
		service.Close()
		_ = os.RemoveAll(slotDir)
	})

	Describe("Login", func() {
		BeforeEach(func() {
			Expect(service.Load(ctx)).To(BeNil())
		})

		It("should open a session without the secret", func() {
			identity, err := service.Login(ctx, "admin@empresa.com", "admin123")
			Expect(err).To(BeNil())
			Expect(identity).To(Equal(domain.Identity{ID: 1, Name: "Administrador", Email: "admin@empresa.com", Role: domain.RoleAdmin, Sector: "TI"}))
			Expect(*service.Current()).To(Equal(identity))
			Expect(service.IsPrivileged()).To(BeTrue())

			data, err := os.ReadFile(filepath.Join(slotDir, "user.json"))
			Expect(err).To(BeNil())
			Expect(string(data)).ToNot(ContainSubstring("admin123"))
		})

		It("should reject wrong credentials", func() {
			_, err := service.Login(ctx, "admin@empresa.com", "wrong")
			Expect(err).To(Equal(bizerror.ErrUnauthenticated))
			_, err = service.Login(ctx, "nobody@empresa.com", "admin123")
			Expect(err).To(Equal(bizerror.ErrUnauthenticated))
			Expect(service.Current()).To(BeNil())
		})

		It("should conflate backend failures with wrong credentials", func() {
			client.FailOn(testinfra.OpSelect, domain.TableUsers, errors.New("connection reset"))
			_, err := service.Login(ctx, "admin@empresa.com", "admin123")
			Expect(err).To(Equal(bizerror.ErrUnauthenticated))
		})

		It("should not privilege standard users", func() {
			_, err := service.Login(ctx, "john@example.com", "password")
			Expect(err).To(BeNil())
			Expect(service.IsPrivileged()).To(BeFalse())
		})

		It("should clear the session on logout", func() {
			_, err := service.Login(ctx, "admin@empresa.com", "admin123")
			Expect(err).To(BeNil())
			Expect(service.Logout(ctx)).To(BeNil())
			Expect(service.Current()).To(BeNil())
			Expect(service.IsPrivileged()).To(BeFalse())
			_, err = os.Stat(filepath.Join(slotDir, "user.json"))
			Expect(os.IsNotExist(err)).To(BeTrue())
		})

		It("should throttle repeated attempts per email", func() {
			service.Close()
			service = newService(account.Options{LoginInterval: time.Hour, LoginBurst: 2})
			Expect(service.Load(ctx)).To(BeNil())

			_, err := service.Login(ctx, "admin@empresa.com", "x")
			Expect(err).To(Equal(bizerror.ErrUnauthenticated))
			_, err = service.Login(ctx, "ADMIN@empresa.com ", "y")
			Expect(err).To(Equal(bizerror.ErrUnauthenticated))
			_, err = service.Login(ctx, "admin@empresa.com", "admin123")
			Expect(err).To(Equal(bizerror.ErrTooManyAttempts))

			_, err = service.Login(ctx, "john@example.com", "password")
			Expect(err).To(BeNil())
		})
	})

	Describe("session restore", func() {
		It("should pick up the identity kept in the slot", func() {
			Expect(slot.Save(ctx, domain.Identity{ID: 2, Name: "John Doe", Email: "john@example.com", Role: domain.RoleUser})).To(BeNil())
			restored := newService(account.Options{})
			defer restored.Close()
			Expect(restored.Current()).ToNot(BeNil())
			Expect(restored.Current().Email).To(Equal("john@example.com"))
			Expect(client.Count(testinfra.OpSelect, domain.TableUsers)).To(BeZero())
		})
	})

	Describe("Load", func() {
		It("should seed both tables once", func() {
			Expect(service.Load(ctx)).To(BeNil())
			Expect(service.ListUsers()).To(HaveLen(3))
			Expect(service.ListSectors()).To(HaveLen(3))
			Expect(service.Load(ctx)).To(BeNil())
			Expect(client.Count(testinfra.OpInsert, domain.TableUsers)).To(Equal(3))
			Expect(client.Count(testinfra.OpInsert, domain.TableSectors)).To(Equal(3))
			Expect(service.State()).To(Equal(account.State{MissingTables: []string{}}))
		})

		It("should flag missing users table and refuse logins", func() {
			memory.DropTable(domain.TableUsers)
			Expect(errors.Is(service.Load(ctx), bizerror.ErrSchemaNotReady)).To(BeTrue())
			Expect(service.ListSectors()).To(HaveLen(3))
			Expect(service.State().MissingTables).To(Equal([]string{domain.TableUsers}))

			_, err := service.Login(ctx, "admin@empresa.com", "admin123")
			Expect(err).To(Equal(bizerror.ErrSchemaNotReady))

			memory.CreateTable(domain.TableUsers)
			Expect(service.Retry(ctx)).To(BeNil())
			Expect(service.State().MissingTables).To(BeEmpty())
			_, err = service.Login(ctx, "admin@empresa.com", "admin123")
			Expect(err).To(BeNil())
		})

		It("should isolate sector failures", func() {
			memory.DropTable(domain.TableSectors)
			Expect(service.Load(ctx)).To(BeNil())
			Expect(service.ListUsers()).To(HaveLen(3))
			Expect(service.ListSectors()).To(BeEmpty())
			Expect(service.State().MissingTables).To(BeEmpty())
		})

		It("should surface connectivity problems of the users path", func() {
			client.FailOn(testinfra.OpSelect, domain.TableUsers, errors.New("dial tcp: connection refused"))
			Expect(service.Load(ctx)).ToNot(BeNil())
			Expect(service.State().ConnectionError).To(ContainSubstring("connection refused"))
			Expect(service.State().MissingTables).To(BeEmpty())
		})
	})

	Describe("user and sector management", func() {
		BeforeEach(func() {
			Expect(service.Load(ctx)).To(BeNil())
		})

		It("should add users with defaults", func() {
			identity, pending, err := service.AddUser(ctx, domain.IdentityCreation{Name: "Ann", Email: "ann@empresa.com", Password: "secret"})
			Expect(err).To(BeNil())
			Expect(identity.ID).ToNot(BeZero())
			Expect(identity.Role).To(Equal(domain.RoleUser))
			Expect(identity.Sector).To(Equal(domain.NoSector))
			Expect(pending.Wait(ctx)).To(BeNil())

			_, err = service.Login(ctx, "ann@empresa.com", "secret")
			Expect(err).To(BeNil())
		})

		It("should validate new users", func() {
			_, _, err := service.AddUser(ctx, domain.IdentityCreation{Name: "Ann", Email: "ann", Password: "secret"})
			var badParam *bizerror.ErrBadParam
			Expect(errors.As(err, &badParam)).To(BeTrue())
			Expect(service.ListUsers()).To(HaveLen(3))
		})

		It("should update and delete users", func() {
			pending, err := service.UpdateUser(ctx, 2, tables.Fields{"sector": "TI"})
			Expect(err).To(BeNil())
			Expect(pending.Wait(ctx)).To(BeNil())
			u, _ := service.GetUser(2)
			Expect(u.Sector).To(Equal("TI"))

			_, err = service.UpdateUser(ctx, 2, tables.Fields{"role": "root"})
			var badParam *bizerror.ErrBadParam
			Expect(errors.As(err, &badParam)).To(BeTrue())

			Expect(service.DeleteUser(ctx, 2).Wait(ctx)).To(BeNil())
			_, found := service.GetUser(2)
			Expect(found).To(BeFalse())
		})

		It("should manage sectors", func() {
			sector, pending, err := service.AddSector(ctx, domain.SectorCreation{Name: "Compras"})
			Expect(err).To(BeNil())
			Expect(sector.ID).To(HavePrefix("sector-"))
			Expect(pending.Wait(ctx)).To(BeNil())

			pending, err = service.UpdateSector(ctx, sector.ID, tables.Fields{"description": "Suprimentos"})
			Expect(err).To(BeNil())
			Expect(pending.Wait(ctx)).To(BeNil())
			Expect(service.ListSectors()[3].Description).To(Equal("Suprimentos"))

			Expect(service.DeleteSector(ctx, sector.ID).Wait(ctx)).To(BeNil())
			Expect(service.ListSectors()).To(HaveLen(3))

			_, _, err = service.AddSector(ctx, domain.SectorCreation{})
			Expect(err).ToNot(BeNil())
		})
	})
})
