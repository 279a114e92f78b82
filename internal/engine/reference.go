package engine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"vontta/internal/cache"
	"vontta/internal/domain"
	"vontta/internal/engine/auth"
	"vontta/internal/repo"
)

func requireName(field, v string) (string, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return "", domain.ValidationError{Field: field, Message: "is required"}
	}
	return v, nil
}

func (e Engine) ListSectors(ctx context.Context) ([]domain.Sector, error) {
	return e.Repo.ListSectors(ctx)
}

func (e Engine) CreateSector(ctx context.Context, actorID, name string) (domain.Sector, error) {
	actor, err := e.admin(ctx, actorID)
	if err != nil {
		return domain.Sector{}, err
	}
	name, err = requireName("name", name)
	if err != nil {
		return domain.Sector{}, err
	}
	s := domain.Sector{ID: uuid.NewString(), Name: name, CreatedAt: e.timestamp()}
	err = e.write(ctx, []cache.Table{cache.TableSectors}, domain.ActionCreate, actor.ID, "Novo setor: "+name, func(tx *sql.Tx) error {
		return e.Repo.InsertSector(ctx, tx, s)
	})
	if err != nil {
		return domain.Sector{}, err
	}
	return s, nil
}

// RenameSector changes the display name only. Tasks keep the sector name
// they were created with.
func (e Engine) RenameSector(ctx context.Context, actorID, id, name string) (domain.Sector, error) {
	actor, err := e.admin(ctx, actorID)
	if err != nil {
		return domain.Sector{}, err
	}
	name, err = requireName("name", name)
	if err != nil {
		return domain.Sector{}, err
	}
	err = e.write(ctx, []cache.Table{cache.TableSectors}, domain.ActionUpdate, actor.ID, "Setor renomeado: "+name, func(tx *sql.Tx) error {
		return e.Repo.RenameSector(ctx, tx, id, name)
	})
	if err != nil {
		return domain.Sector{}, err
	}
	return e.Repo.GetSector(ctx, id)
}

func (e Engine) DeleteSector(ctx context.Context, actorID, id string) error {
	actor, err := e.admin(ctx, actorID)
	if err != nil {
		return err
	}
	s, err := e.Repo.GetSector(ctx, id)
	if err != nil {
		return err
	}
	return e.write(ctx, []cache.Table{cache.TableSectors}, domain.ActionDelete, actor.ID, "Setor removido: "+s.Name, func(tx *sql.Tx) error {
		return e.Repo.DeleteSector(ctx, tx, id)
	})
}

type ProjectInput struct {
	Name     string `json:"name"`
	SectorID string `json:"sector_id,omitempty"`
}

func (e Engine) checkSector(ctx context.Context, id string) error {
	if id == "" {
		return nil
	}
	if _, err := e.Repo.GetSector(ctx, id); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return domain.ValidationError{Field: "sector_id", Message: fmt.Sprintf("sector %s does not exist", id)}
		}
		return err
	}
	return nil
}

func (e Engine) ListProjects(ctx context.Context) ([]domain.Project, error) {
	return e.Repo.ListProjects(ctx)
}

func (e Engine) CreateProject(ctx context.Context, actorID string, in ProjectInput) (domain.Project, error) {
	actor, err := e.admin(ctx, actorID)
	if err != nil {
		return domain.Project{}, err
	}
	name, err := requireName("name", in.Name)
	if err != nil {
		return domain.Project{}, err
	}
	if err := e.checkSector(ctx, in.SectorID); err != nil {
		return domain.Project{}, err
	}
	p := domain.Project{ID: uuid.NewString(), Name: name, SectorID: in.SectorID, CreatedAt: e.timestamp()}
	err = e.write(ctx, []cache.Table{cache.TableProjects}, domain.ActionCreate, actor.ID, "Novo projeto: "+name, func(tx *sql.Tx) error {
		return e.Repo.InsertProject(ctx, tx, p)
	})
	if err != nil {
		return domain.Project{}, err
	}
	return p, nil
}

// UpdateProject renames or moves a project to another sector. Existing tasks
// keep their sector snapshot.
func (e Engine) UpdateProject(ctx context.Context, actorID, id string, in ProjectInput) (domain.Project, error) {
	actor, err := e.admin(ctx, actorID)
	if err != nil {
		return domain.Project{}, err
	}
	p, err := e.Repo.GetProject(ctx, id)
	if err != nil {
		return domain.Project{}, err
	}
	if in.Name != "" {
		if p.Name, err = requireName("name", in.Name); err != nil {
			return domain.Project{}, err
		}
	}
	if err := e.checkSector(ctx, in.SectorID); err != nil {
		return domain.Project{}, err
	}
	p.SectorID = in.SectorID
	err = e.write(ctx, []cache.Table{cache.TableProjects}, domain.ActionUpdate, actor.ID, "Projeto atualizado: "+p.Name, func(tx *sql.Tx) error {
		return e.Repo.UpdateProject(ctx, tx, p)
	})
	if err != nil {
		return domain.Project{}, err
	}
	return p, nil
}

func (e Engine) DeleteProject(ctx context.Context, actorID, id string) error {
	actor, err := e.admin(ctx, actorID)
	if err != nil {
		return err
	}
	p, err := e.Repo.GetProject(ctx, id)
	if err != nil {
		return err
	}
	return e.write(ctx, []cache.Table{cache.TableProjects}, domain.ActionDelete, actor.ID, "Projeto removido: "+p.Name, func(tx *sql.Tx) error {
		return e.Repo.DeleteProject(ctx, tx, id)
	})
}

type ProfileInput struct {
	ID     string `json:"id,omitempty"`
	Name   string `json:"name"`
	Email  string `json:"email,omitempty"`
	Avatar string `json:"avatar,omitempty"`
	Role   string `json:"role,omitempty" enum:"admin,user"`
	Sector string `json:"sector,omitempty"`
}

func (e Engine) ListProfiles(ctx context.Context) ([]domain.Profile, error) {
	return e.Repo.ListProfiles(ctx)
}

func (e Engine) GetProfile(ctx context.Context, id string) (domain.Profile, error) {
	return e.Repo.GetProfile(ctx, id)
}

// CreateProfile registers a user. Only admins may do so, except for the very
// first profile, which is created as admin with no actor.
func (e Engine) CreateProfile(ctx context.Context, actorID string, in ProfileInput) (domain.Profile, error) {
	n, err := e.Repo.CountProfiles(ctx)
	if err != nil {
		return domain.Profile{}, err
	}
	bootstrap := n == 0
	p := domain.Profile{
		ID:        strings.TrimSpace(in.ID),
		Name:      strings.TrimSpace(in.Name),
		Email:     strings.TrimSpace(in.Email),
		Avatar:    in.Avatar,
		Role:      in.Role,
		Sector:    in.Sector,
		CreatedAt: e.timestamp(),
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.Role == "" {
		p.Role = domain.RoleUser
	}
	auditActor := p.ID
	if bootstrap {
		p.Role = domain.RoleAdmin
	} else {
		actor, err := e.admin(ctx, actorID)
		if err != nil {
			return domain.Profile{}, err
		}
		auditActor = actor.ID
	}
	if err := domain.ValidateProfile(p); err != nil {
		return domain.Profile{}, err
	}
	err = e.write(ctx, []cache.Table{cache.TableProfiles}, domain.ActionCreate, auditActor, "Novo usuário: "+p.Name, func(tx *sql.Tx) error {
		return e.Repo.InsertProfile(ctx, tx, p)
	})
	if err != nil {
		return domain.Profile{}, err
	}
	return p, nil
}

func (e Engine) UpdateProfile(ctx context.Context, actorID, id string, patch domain.ProfilePatch) (domain.Profile, error) {
	actor, err := e.actor(ctx, actorID)
	if err != nil {
		return domain.Profile{}, err
	}
	if err := auth.CanEditProfile(actor, id, patch); err != nil {
		return domain.Profile{}, err
	}
	current, err := e.Repo.GetProfile(ctx, id)
	if err != nil {
		return domain.Profile{}, err
	}
	next := patch.Apply(current)
	next.Name = strings.TrimSpace(next.Name)
	if err := domain.ValidateProfile(next); err != nil {
		return domain.Profile{}, err
	}
	err = e.write(ctx, []cache.Table{cache.TableProfiles}, domain.ActionUpdate, actor.ID, "Usuário atualizado: "+next.Name, func(tx *sql.Tx) error {
		return e.Repo.UpdateProfile(ctx, tx, next)
	})
	if err != nil {
		return domain.Profile{}, err
	}
	return next, nil
}

// DeleteProfile removes a user who owns no tasks. Admins cannot remove
// themselves.
func (e Engine) DeleteProfile(ctx context.Context, actorID, id string) error {
	actor, err := e.admin(ctx, actorID)
	if err != nil {
		return err
	}
	if actor.ID == id {
		return domain.ValidationError{Field: "id", Message: "cannot delete your own profile"}
	}
	p, err := e.Repo.GetProfile(ctx, id)
	if err != nil {
		return err
	}
	return e.write(ctx, []cache.Table{cache.TableProfiles}, domain.ActionDelete, actor.ID, "Usuário removido: "+p.Name, func(tx *sql.Tx) error {
		return e.Repo.DeleteProfile(ctx, tx, id)
	})
}
