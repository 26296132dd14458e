// Package metatest provides mapping fixtures for tests.
package metatest

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/satishbabariya/objgraph/meta"
)

// GalleryYAML is a small art gallery mapping covering to-one, to-many,
// dependent PK, flattened and composite key relationships plus a
// single-table inheritance hierarchy.
const GalleryYAML = `
name: gallery
dbEntities:
  - name: ARTIST
    attributes:
      - {name: ARTIST_ID, type: BIGINT, primaryKey: true, mandatory: true, generated: true}
      - {name: ARTIST_NAME, type: VARCHAR, length: 254, mandatory: true}
      - {name: DATE_OF_BIRTH, type: DATE}
    relationships:
      - name: paintingArray
        target: PAINTING
        toMany: true
        joins: [{source: ARTIST_ID, target: ARTIST_ID}]
      - name: artistExhibitArray
        target: ARTIST_EXHIBIT
        toMany: true
        joins: [{source: ARTIST_ID, target: ARTIST_ID}]
  - name: GALLERY
    attributes:
      - {name: GALLERY_ID, type: BIGINT, primaryKey: true, mandatory: true}
      - {name: GALLERY_NAME, type: VARCHAR, length: 100, mandatory: true}
    relationships:
      - name: paintingArray
        target: PAINTING
        toMany: true
        joins: [{source: GALLERY_ID, target: GALLERY_ID}]
      - name: exhibitArray
        target: EXHIBIT
        toMany: true
        joins: [{source: GALLERY_ID, target: GALLERY_ID}]
  - name: PAINTING
    attributes:
      - {name: PAINTING_ID, type: BIGINT, primaryKey: true, mandatory: true}
      - {name: PAINTING_TITLE, type: VARCHAR, length: 255, mandatory: true}
      - {name: ESTIMATED_PRICE, type: DECIMAL, length: 10, scale: 2}
      - {name: ARTIST_ID, type: BIGINT}
      - {name: GALLERY_ID, type: BIGINT, mandatory: true}
    relationships:
      - name: toArtist
        target: ARTIST
        joins: [{source: ARTIST_ID, target: ARTIST_ID}]
      - name: toGallery
        target: GALLERY
        joins: [{source: GALLERY_ID, target: GALLERY_ID}]
      - name: toPaintingInfo
        target: PAINTING_INFO
        toDependentPK: true
        joins: [{source: PAINTING_ID, target: PAINTING_ID}]
  - name: PAINTING_INFO
    attributes:
      - {name: PAINTING_ID, type: BIGINT, primaryKey: true, mandatory: true}
      - {name: TEXT_REVIEW, type: CLOB}
    relationships:
      - name: painting
        target: PAINTING
        joins: [{source: PAINTING_ID, target: PAINTING_ID}]
  - name: EXHIBIT
    attributes:
      - {name: EXHIBIT_ID, type: BIGINT, primaryKey: true, mandatory: true}
      - {name: GALLERY_ID, type: BIGINT, mandatory: true}
      - {name: OPENING_DATE, type: TIMESTAMP, mandatory: true}
    relationships:
      - name: toGallery
        target: GALLERY
        joins: [{source: GALLERY_ID, target: GALLERY_ID}]
      - name: artistExhibitArray
        target: ARTIST_EXHIBIT
        toMany: true
        joins: [{source: EXHIBIT_ID, target: EXHIBIT_ID}]
  - name: ARTIST_EXHIBIT
    attributes:
      - {name: ARTIST_ID, type: BIGINT, primaryKey: true, mandatory: true}
      - {name: EXHIBIT_ID, type: BIGINT, primaryKey: true, mandatory: true}
    relationships:
      - name: toArtist
        target: ARTIST
        joins: [{source: ARTIST_ID, target: ARTIST_ID}]
      - name: toExhibit
        target: EXHIBIT
        joins: [{source: EXHIBIT_ID, target: EXHIBIT_ID}]
  - name: PERSON
    attributes:
      - {name: PERSON_ID, type: BIGINT, primaryKey: true, mandatory: true}
      - {name: NAME, type: VARCHAR, length: 100, mandatory: true}
      - {name: PERSON_TYPE, type: CHAR, length: 1, mandatory: true}
      - {name: SALARY, type: DECIMAL, length: 12, scale: 2}
objEntities:
  - name: Artist
    dbEntity: ARTIST
    attributes:
      - {name: artistName, dbPath: ARTIST_NAME, type: string}
      - {name: dateOfBirth, dbPath: DATE_OF_BIRTH, type: time}
    relationships:
      - {name: paintingArray, target: Painting, dbPath: paintingArray}
      - {name: exhibitArray, target: Exhibit, dbPath: artistExhibitArray.toExhibit}
  - name: Gallery
    dbEntity: GALLERY
    attributes:
      - {name: galleryName, dbPath: GALLERY_NAME, type: string}
    relationships:
      - {name: paintingArray, target: Painting, dbPath: paintingArray}
      - {name: exhibitArray, target: Exhibit, dbPath: exhibitArray}
  - name: Painting
    dbEntity: PAINTING
    attributes:
      - {name: paintingTitle, dbPath: PAINTING_TITLE, type: string}
      - {name: estimatedPrice, dbPath: ESTIMATED_PRICE, type: float64}
      - {name: artistName, dbPath: toArtist.ARTIST_NAME, type: string}
    relationships:
      - {name: toArtist, target: Artist, dbPath: toArtist}
      - {name: toGallery, target: Gallery, dbPath: toGallery}
      - {name: toPaintingInfo, target: PaintingInfo, dbPath: toPaintingInfo}
  - name: PaintingInfo
    dbEntity: PAINTING_INFO
    attributes:
      - {name: textReview, dbPath: TEXT_REVIEW, type: string}
    relationships:
      - {name: painting, target: Painting, dbPath: painting}
  - name: Exhibit
    dbEntity: EXHIBIT
    attributes:
      - {name: openingDate, dbPath: OPENING_DATE, type: time}
    relationships:
      - {name: toGallery, target: Gallery, dbPath: toGallery}
      - {name: artistArray, target: Artist, dbPath: artistExhibitArray.toArtist}
      - {name: artistExhibitArray, target: ArtistExhibit, dbPath: artistExhibitArray}
  - name: ArtistExhibit
    dbEntity: ARTIST_EXHIBIT
    relationships:
      - {name: toArtist, target: Artist, dbPath: toArtist}
      - {name: toExhibit, target: Exhibit, dbPath: toExhibit}
  - name: AbstractPerson
    dbEntity: PERSON
    discriminator: PERSON_TYPE
    attributes:
      - {name: name, dbPath: NAME, type: string}
  - name: Employee
    dbEntity: PERSON
    superEntity: AbstractPerson
    discriminatorValue: E
    attributes:
      - {name: salary, dbPath: SALARY, type: float64}
  - name: Manager
    dbEntity: PERSON
    superEntity: Employee
    discriminatorValue: M
  - name: Customer
    dbEntity: PERSON
    superEntity: AbstractPerson
    discriminatorValue: C
`

// Gallery loads GalleryYAML into a fresh resolver.
func Gallery(t testing.TB) *meta.EntityResolver {
	t.Helper()
	m, err := meta.Load(strings.NewReader(GalleryYAML))
	require.NoError(t, err)
	r, err := meta.NewEntityResolver(m)
	require.NoError(t, err)
	return r
}
