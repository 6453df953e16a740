package usecase

import (
	"context"
	"sync"

	"medqueue-portal/internal/domain/entity"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

// CatalogSource is the upstream side of the data cache.
type CatalogSource interface {
	Departments(ctx context.Context) ([]entity.Department, error)
	Doctors(ctx context.Context, departmentID entity.ID) ([]entity.Doctor, error)
}

// DataCache holds the department list and the full doctor list of one
// session. Lists are fetched at most once after a successful load; filtered
// doctor lookups filter the cached full list and never replace it. Fetch
// failures yield empty lists and are reported through Failure.
type DataCache interface {
	FetchDepartments(ctx context.Context) []entity.Department
	FetchDoctors(ctx context.Context, departmentID entity.ID) []entity.Doctor
	FindDoctor(ctx context.Context, doctorID entity.ID) (*entity.Doctor, bool)
	Failure() CatalogFailure
}

// CatalogFailure flags which list failed to load on its last attempt.
type CatalogFailure struct {
	Departments bool `json:"departments"`
	Doctors     bool `json:"doctors"`
}

func (f CatalogFailure) Any() bool {
	return f.Departments || f.Doctors
}

type dataCache struct {
	source CatalogSource
	log    *logrus.Logger
	group  singleflight.Group

	mu                sync.RWMutex
	departments       []entity.Department
	departmentsLoaded bool
	doctors           []entity.Doctor
	doctorsLoaded     bool
	failure           CatalogFailure
}

func NewDataCache(source CatalogSource, log *logrus.Logger) DataCache {
	return &dataCache{
		source: source,
		log:    log,
	}
}

func (c *dataCache) FetchDepartments(ctx context.Context) []entity.Department {
	c.mu.RLock()
	if c.departmentsLoaded {
		list := cloneSlice(c.departments)
		c.mu.RUnlock()
		return list
	}
	c.mu.RUnlock()

	v, err, _ := c.group.Do("departments", func() (interface{}, error) {
		return c.source.Departments(ctx)
	})

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		c.log.Warnf("Failed to fetch departments: %+v", err)
		c.failure.Departments = true
		return []entity.Department{}
	}
	if !c.departmentsLoaded {
		c.departments = cloneSlice(v.([]entity.Department))
		c.departmentsLoaded = true
	}
	c.failure.Departments = false
	return cloneSlice(c.departments)
}

// FetchDoctors returns all doctors, or only those of departmentID when it is
// set. A cold cache is filled with the full list first.
func (c *dataCache) FetchDoctors(ctx context.Context, departmentID entity.ID) []entity.Doctor {
	all := c.allDoctors(ctx)
	if departmentID.IsZero() {
		return all
	}
	return entity.FilterDoctorsByDepartment(all, departmentID)
}

func (c *dataCache) FindDoctor(ctx context.Context, doctorID entity.ID) (*entity.Doctor, bool) {
	return entity.FindDoctor(c.allDoctors(ctx), doctorID)
}

func (c *dataCache) allDoctors(ctx context.Context) []entity.Doctor {
	c.mu.RLock()
	if c.doctorsLoaded {
		list := cloneSlice(c.doctors)
		c.mu.RUnlock()
		return list
	}
	c.mu.RUnlock()

	v, err, _ := c.group.Do("doctors", func() (interface{}, error) {
		return c.source.Doctors(ctx, "")
	})

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		c.log.Warnf("Failed to fetch doctors: %+v", err)
		c.failure.Doctors = true
		return []entity.Doctor{}
	}
	if !c.doctorsLoaded {
		c.doctors = cloneSlice(v.([]entity.Doctor))
		c.doctorsLoaded = true
	}
	c.failure.Doctors = false
	return cloneSlice(c.doctors)
}

func (c *dataCache) Failure() CatalogFailure {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.failure
}

func cloneSlice[T any](in []T) []T {
	out := make([]T, len(in))
	copy(out, in)
	return out
}
