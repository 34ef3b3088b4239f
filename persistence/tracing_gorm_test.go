package persistence_test

import (
	"context"
	"procurement/domain"
	"procurement/testinfra"
	"testing"

	. "github.com/onsi/gomega"
	"github.com/opentracing/opentracing-go"
	"github.com/opentracing/opentracing-go/mocktracer"
)

func TestGormTracing(t *testing.T) {
	RegisterTestingT(t)

	tracer := mocktracer.New()
	opentracing.SetGlobalTracer(tracer)
	defer opentracing.SetGlobalTracer(opentracing.NoopTracer{})
	var testDatabase *testinfra.TestDatabase

	t.Run("gorm tracing should be ignored when parent span not found", func(t *testing.T) {
		defer func() { gormTracingTestTeardown(t, testDatabase) }()
		gormTracingTestSetup(t, &testDatabase)

		tracer.Reset()

		r := []domain.Sector{}
		Expect(testDatabase.DS.GormDB(context.Background()).Find(&r).Error).To(BeNil())
		Expect(len(r)).To(BeZero())
		Expect(len(tracer.FinishedSpans())).To(Equal(0))
	})

	t.Run("gorm tracing should be work with parent span", func(t *testing.T) {
		defer func() { gormTracingTestTeardown(t, testDatabase) }()
		gormTracingTestSetup(t, &testDatabase)

		tracer.Reset()

		clientSpan := tracer.StartSpan("client")
		ctx := opentracing.ContextWithSpan(context.Background(), clientSpan)

		r := []domain.Sector{}
		Expect(testDatabase.DS.GormDB(ctx).Find(&r).Error).To(BeNil())
		Expect(len(r)).To(BeZero())

		clientSpan.Finish()

		spans := tracer.FinishedSpans()
		Expect(len(spans)).To(Equal(2))
		s0 := spans[1]
		Expect(s0.OperationName).To(Equal("client"))
		Expect(s0.ParentID).To(BeZero())

		s1 := spans[0]
		Expect(s1.OperationName).To(Equal("sql"))
		Expect(s1.ParentID).To(Equal(s0.SpanContext.SpanID))
		Expect(s1.SpanContext.TraceID).To(Equal(s0.SpanContext.TraceID))
	})
}

func TestMigrate(t *testing.T) {
	RegisterTestingT(t)

	testDatabase := testinfra.StartTestDatabase("procurement")
	defer testinfra.StopTestDatabase(testDatabase)

	Expect(testDatabase.DS.Migrate(context.Background())).To(BeNil())
	db := testDatabase.DS.GormDB(context.Background())
	for _, table := range []string{domain.TableUsers, domain.TableSectors, domain.TableStatuses, domain.TableFormFields, domain.TableRequests} {
		Expect(db.HasTable(table)).To(BeTrue(), table)
	}
	Expect(db.Dialect().HasColumn(domain.TableFormFields, "isVisibleInList")).To(BeTrue())

	// migrating twice is harmless
	Expect(testDatabase.DS.Migrate(context.Background())).To(BeNil())
}

func gormTracingTestSetup(t *testing.T, testDatabase **testinfra.TestDatabase) {
	db := testinfra.StartTestDatabase("procurement")
	*testDatabase = db
	Expect(db.DS.GormDB(context.Background()).AutoMigrate(&domain.Sector{}).Error).To(BeNil())
}

func gormTracingTestTeardown(t *testing.T, testDatabase *testinfra.TestDatabase) {
	if testDatabase != nil {
		testinfra.StopTestDatabase(testDatabase)
	}
}
