package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"

	"medqueue-portal/internal/domain/entity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDataCache_DoctorsFetchedOnce(t *testing.T) {
	catalog := &fakeCatalog{doctors: []entity.Doctor{
		{ID: "1", DepartmentRef: "7"},
		{ID: "2", Department: &entity.DepartmentRef{ID: "7"}},
		{ID: "3", DepartmentRef: "9"},
	}}
	cache := NewDataCache(catalog, testLogger())
	ctx := context.Background()

	cardio := cache.FetchDoctors(ctx, "7")
	require.Len(t, cardio, 2)
	assert.Equal(t, entity.ID("1"), cardio[0].ID)
	assert.Equal(t, entity.ID("2"), cardio[1].ID)

	all := cache.FetchDoctors(ctx, "")
	assert.Len(t, all, 3, "a filtered call must not replace the full list")

	d, ok := cache.FindDoctor(ctx, "3")
	require.True(t, ok)
	assert.Equal(t, entity.ID("9"), d.DepartmentRef)

	assert.EqualValues(t, 1, catalog.doctorCalls.Load())
}

func TestDataCache_ConcurrentColdFetch(t *testing.T) {
	catalog := &fakeCatalog{doctors: []entity.Doctor{{ID: "1"}}}
	cache := NewDataCache(catalog, testLogger())

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			cache.FetchDoctors(context.Background(), "")
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, catalog.doctorCalls.Load(), int32(20))
	assert.Len(t, cache.FetchDoctors(context.Background(), ""), 1)
}

func TestDataCache_ReturnsCopies(t *testing.T) {
	catalog := &fakeCatalog{departments: []entity.Department{{ID: "1", Name: "ENT"}}}
	cache := NewDataCache(catalog, testLogger())
	ctx := context.Background()

	list := cache.FetchDepartments(ctx)
	list[0].Name = "changed"

	again := cache.FetchDepartments(ctx)
	assert.Equal(t, "ENT", again[0].Name)
	assert.EqualValues(t, 1, catalog.deptCalls.Load())
}

func TestDataCache_FailureIsSoft(t *testing.T) {
	catalog := &fakeCatalog{
		departmentErr: errors.New("network down"),
		doctorErr:     errors.New("network down"),
	}
	cache := NewDataCache(catalog, testLogger())
	ctx := context.Background()

	assert.Empty(t, cache.FetchDepartments(ctx))
	assert.Empty(t, cache.FetchDoctors(ctx, "7"))
	_, ok := cache.FindDoctor(ctx, "1")
	assert.False(t, ok)

	failure := cache.Failure()
	assert.True(t, failure.Departments)
	assert.True(t, failure.Doctors)
	assert.True(t, failure.Any())

	// a later success clears the flag and is cached
	catalog.departmentErr = nil
	catalog.departments = []entity.Department{{ID: "1"}}
	assert.Len(t, cache.FetchDepartments(ctx), 1)
	assert.False(t, cache.Failure().Departments)
	assert.True(t, cache.Failure().Doctors)
}
