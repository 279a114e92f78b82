package repo

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"vontta/internal/domain"
)

// ErrInUse is returned when a row cannot be removed because others reference it.
var ErrInUse = errors.New("still referenced")

func mapConstraint(err error) error {
	if err == nil {
		return nil
	}
	if strings.Contains(strings.ToLower(err.Error()), "foreign key constraint") {
		return ErrInUse
	}
	return err
}

func (r Repo) InsertSector(ctx context.Context, tx *sql.Tx, s domain.Sector) error {
	_, err := r.on(tx).ExecContext(ctx, `INSERT INTO sectors(id,name,created_at) VALUES (?,?,?)`, s.ID, s.Name, s.CreatedAt)
	return err
}

func (r Repo) GetSector(ctx context.Context, id string) (domain.Sector, error) {
	var s domain.Sector
	err := r.DB.QueryRowContext(ctx, `SELECT id,name,created_at FROM sectors WHERE id=?`, id).Scan(&s.ID, &s.Name, &s.CreatedAt)
	if err == sql.ErrNoRows {
		return s, ErrNotFound
	}
	return s, err
}

func (r Repo) RenameSector(ctx context.Context, tx *sql.Tx, id, name string) error {
	res, err := r.on(tx).ExecContext(ctx, `UPDATE sectors SET name=? WHERE id=?`, name, id)
	if err != nil {
		return err
	}
	return affectedOrNotFound(res)
}

func (r Repo) ListSectors(ctx context.Context) ([]domain.Sector, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT id,name,created_at FROM sectors ORDER BY name ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	res := []domain.Sector{}
	for rows.Next() {
		var s domain.Sector
		if err := rows.Scan(&s.ID, &s.Name, &s.CreatedAt); err != nil {
			return nil, err
		}
		res = append(res, s)
	}
	return res, rows.Err()
}

// DeleteSector fails with ErrInUse while projects still point at the sector.
func (r Repo) DeleteSector(ctx context.Context, tx *sql.Tx, id string) error {
	res, err := r.on(tx).ExecContext(ctx, `DELETE FROM sectors WHERE id=?`, id)
	if err != nil {
		return mapConstraint(err)
	}
	return affectedOrNotFound(res)
}

func (r Repo) InsertProject(ctx context.Context, tx *sql.Tx, p domain.Project) error {
	_, err := r.on(tx).ExecContext(ctx, `INSERT INTO projects(id,name,sector_id,created_at) VALUES (?,?,?,?)`,
		p.ID, p.Name, nullable(p.SectorID), p.CreatedAt)
	return err
}

func (r Repo) GetProject(ctx context.Context, id string) (domain.Project, error) {
	var p domain.Project
	err := r.DB.QueryRowContext(ctx, `SELECT id,name,COALESCE(sector_id,''),created_at FROM projects WHERE id=?`, id).
		Scan(&p.ID, &p.Name, &p.SectorID, &p.CreatedAt)
	if err == sql.ErrNoRows {
		return p, ErrNotFound
	}
	return p, err
}

func (r Repo) UpdateProject(ctx context.Context, tx *sql.Tx, p domain.Project) error {
	res, err := r.on(tx).ExecContext(ctx, `UPDATE projects SET name=?, sector_id=? WHERE id=?`, p.Name, nullable(p.SectorID), p.ID)
	if err != nil {
		return err
	}
	return affectedOrNotFound(res)
}

func (r Repo) ListProjects(ctx context.Context) ([]domain.Project, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT id,name,COALESCE(sector_id,''),created_at FROM projects ORDER BY name ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	res := []domain.Project{}
	for rows.Next() {
		var p domain.Project
		if err := rows.Scan(&p.ID, &p.Name, &p.SectorID, &p.CreatedAt); err != nil {
			return nil, err
		}
		res = append(res, p)
	}
	return res, rows.Err()
}

// DeleteProject fails with ErrInUse while tasks still point at the project.
func (r Repo) DeleteProject(ctx context.Context, tx *sql.Tx, id string) error {
	res, err := r.on(tx).ExecContext(ctx, `DELETE FROM projects WHERE id=?`, id)
	if err != nil {
		return mapConstraint(err)
	}
	return affectedOrNotFound(res)
}

// ProjectSectorName resolves a project to its sector's display name. A
// project without a sector yields "".
func (r Repo) ProjectSectorName(ctx context.Context, tx *sql.Tx, projectID string) (string, error) {
	var name sql.NullString
	err := r.on(tx).QueryRowContext(ctx, `SELECT s.name FROM projects p LEFT JOIN sectors s ON s.id=p.sector_id WHERE p.id=?`, projectID).Scan(&name)
	if err == sql.ErrNoRows {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return name.String, nil
}

const profileColumns = `id,name,COALESCE(email,''),COALESCE(avatar,''),role,COALESCE(sector,''),created_at`

func scanProfile(row rowScanner) (domain.Profile, error) {
	var p domain.Profile
	err := row.Scan(&p.ID, &p.Name, &p.Email, &p.Avatar, &p.Role, &p.Sector, &p.CreatedAt)
	if err == sql.ErrNoRows {
		return p, ErrNotFound
	}
	return p, err
}

func (r Repo) InsertProfile(ctx context.Context, tx *sql.Tx, p domain.Profile) error {
	_, err := r.on(tx).ExecContext(ctx, `INSERT INTO profiles(id,name,email,avatar,role,sector,created_at) VALUES (?,?,?,?,?,?,?)`,
		p.ID, p.Name, nullable(p.Email), nullable(p.Avatar), p.Role, nullable(p.Sector), p.CreatedAt)
	return err
}

func (r Repo) GetProfile(ctx context.Context, id string) (domain.Profile, error) {
	return scanProfile(r.DB.QueryRowContext(ctx, `SELECT `+profileColumns+` FROM profiles WHERE id=?`, id))
}

func (r Repo) UpdateProfile(ctx context.Context, tx *sql.Tx, p domain.Profile) error {
	res, err := r.on(tx).ExecContext(ctx, `UPDATE profiles SET name=?, email=?, avatar=?, role=?, sector=? WHERE id=?`,
		p.Name, nullable(p.Email), nullable(p.Avatar), p.Role, nullable(p.Sector), p.ID)
	if err != nil {
		return err
	}
	return affectedOrNotFound(res)
}

func (r Repo) ListProfiles(ctx context.Context) ([]domain.Profile, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT `+profileColumns+` FROM profiles ORDER BY name ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	res := []domain.Profile{}
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, p)
	}
	return res, rows.Err()
}

// DeleteProfile fails with ErrInUse while the user still owns tasks.
func (r Repo) DeleteProfile(ctx context.Context, tx *sql.Tx, id string) error {
	res, err := r.on(tx).ExecContext(ctx, `DELETE FROM profiles WHERE id=?`, id)
	if err != nil {
		return mapConstraint(err)
	}
	return affectedOrNotFound(res)
}

func (r Repo) CountProfiles(ctx context.Context) (int, error) {
	var n int
	err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM profiles`).Scan(&n)
	return n, err
}
