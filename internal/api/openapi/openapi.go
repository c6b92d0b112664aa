// Пакет openapi — генерация OpenAPI 3 документа API по дескрипторам таблиц.
// Документ строится один раз при старте и отдаётся на /openapi.json.
package openapi

import (
	"fmt"
	"net/http"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/Vladimir-Titov/challengeup/internal/query"
)

// Resource — ресурс API над одной таблицей.
type Resource struct {
	// Schema — имя схемы сущности в components, например "Challenge"
	Schema string
	// Tag — тег операций
	Tag string
	// Path — путь коллекции, например "/api/v1/challenges"
	Path string
	// Table — дескриптор таблицы
	Table query.Table
	// Create — поля тела POST; Required — обязательные из них
	Create   []string
	Required []string
	// Update — поля тела PATCH
	Update []string
}

// Nested — дополнительный путь списка, вложенный в другой ресурс,
// например "/api/v1/users/{user_id}/contacts".
type Nested struct {
	Path    string
	Param   string
	Schema  string
	Tag     string
	Summary string
}

// reserved — параметры списка, не являющиеся фильтрами.
var reserved = []*openapi3.Parameter{
	openapi3.NewQueryParameter("order_by").
		WithDescription("Столбцы сортировки через запятую, префикс '-' — по убыванию").
		WithSchema(openapi3.NewStringSchema()),
	openapi3.NewQueryParameter("limit").WithSchema(openapi3.NewIntegerSchema().WithMin(0)),
	openapi3.NewQueryParameter("offset").WithSchema(openapi3.NewIntegerSchema().WithMin(0)),
}

// Build строит документ по списку ресурсов.
func Build(title, version string, resources []Resource, nested ...Nested) *openapi3.T {
	doc := &openapi3.T{
		OpenAPI: "3.0.3",
		Info:    &openapi3.Info{Title: title, Version: version},
		Paths:   openapi3.NewPaths(),
		Components: &openapi3.Components{
			Schemas: openapi3.Schemas{"Error": errorSchema()},
		},
	}

	for _, res := range resources {
		doc.Components.Schemas[res.Schema] = openapi3.NewSchemaRef("", entitySchema(res.Table))
		doc.Components.Schemas[res.Schema+"Create"] = openapi3.NewSchemaRef("",
			bodySchema(res.Table, res.Create).WithRequired(res.Required))
		doc.Components.Schemas[res.Schema+"Update"] = openapi3.NewSchemaRef("",
			bodySchema(res.Table, res.Update))

		doc.Paths.Set(res.Path, &openapi3.PathItem{
			Get:  listOperation(res, "Список: "+res.Tag),
			Post: createOperation(res),
		})
		doc.Paths.Set(res.Path+"/{id}", &openapi3.PathItem{
			Parameters: openapi3.Parameters{
				{Value: openapi3.NewPathParameter("id").WithSchema(openapi3.NewUUIDSchema())},
			},
			Get:    operation(res.Tag, "Получение по id", nil, entityResponse(res.Schema), http.StatusNotFound),
			Patch:  operation(res.Tag, "Обновление по id", bodyRef(res.Schema+"Update"), entityResponse(res.Schema), http.StatusBadRequest, http.StatusNotFound, http.StatusConflict),
			Delete: operation(res.Tag, "Архивирование по id", nil, entityResponse(res.Schema), http.StatusNotFound),
		})
	}

	for _, n := range nested {
		op := operation(n.Tag, n.Summary, nil, listResponse(n.Schema), http.StatusBadRequest, http.StatusNotFound)
		op.Parameters = append(openapi3.Parameters{
			{Value: openapi3.NewPathParameter(n.Param).WithSchema(openapi3.NewUUIDSchema())},
		}, reservedParams()...)
		doc.Paths.Set(n.Path, &openapi3.PathItem{Get: op})
	}

	return doc
}

// --- Операции ---

func listOperation(res Resource, summary string) *openapi3.Operation {
	op := operation(res.Tag, summary, nil, listResponse(res.Schema), http.StatusBadRequest)
	op.Parameters = append(reservedParams(), filterParams(res.Table)...)
	return op
}

func createOperation(res Resource) *openapi3.Operation {
	op := openapi3.NewOperation()
	op.Tags = []string{res.Tag}
	op.Summary = "Создание"
	op.RequestBody = bodyRef(res.Schema + "Create")
	op.Responses = openapi3.NewResponses(
		openapi3.WithStatus(http.StatusCreated, entityResponse(res.Schema)),
		openapi3.WithStatus(http.StatusBadRequest, errorResponse()),
		openapi3.WithStatus(http.StatusConflict, errorResponse()),
		openapi3.WithStatus(http.StatusInternalServerError, errorResponse()),
	)
	return op
}

func operation(tag, summary string, body *openapi3.RequestBodyRef, ok *openapi3.ResponseRef, errCodes ...int) *openapi3.Operation {
	opts := []openapi3.NewResponsesOption{openapi3.WithStatus(http.StatusOK, ok)}
	for _, code := range errCodes {
		opts = append(opts, openapi3.WithStatus(code, errorResponse()))
	}
	opts = append(opts, openapi3.WithStatus(http.StatusInternalServerError, errorResponse()))

	op := openapi3.NewOperation()
	op.Tags = []string{tag}
	op.Summary = summary
	op.RequestBody = body
	op.Responses = openapi3.NewResponses(opts...)
	return op
}

func reservedParams() openapi3.Parameters {
	params := make(openapi3.Parameters, len(reserved))
	for i, p := range reserved {
		params[i] = &openapi3.ParameterRef{Value: p}
	}
	return params
}

// filterParams описывает фильтры равенства по каждому столбцу.
// Операторы сравнения (_lt, _in, ...) перечислены в описании параметра.
func filterParams(t query.Table) openapi3.Parameters {
	params := make(openapi3.Parameters, 0, len(t.Columns))
	for _, col := range t.Columns {
		p := openapi3.NewQueryParameter(col.Name).
			WithDescription(fmt.Sprintf("Фильтр по %s; суффиксы: _lt _le _gt _ge _ne _in _notin _is _isnot _like _ilike", col.Name)).
			WithSchema(columnSchema(col))
		params = append(params, &openapi3.ParameterRef{Value: p})
	}
	return params
}

// --- Схемы ---

func columnSchema(col query.Column) *openapi3.Schema {
	var s *openapi3.Schema
	switch col.Type {
	case query.TypeUUID:
		s = openapi3.NewUUIDSchema()
	case query.TypeInteger:
		s = openapi3.NewInt64Schema()
	case query.TypeBoolean:
		s = openapi3.NewBoolSchema()
	case query.TypeTimestamp:
		s = openapi3.NewDateTimeSchema()
	case query.TypeEnum:
		s = openapi3.NewStringSchema()
		for _, v := range col.Enum {
			s.Enum = append(s.Enum, v)
		}
	default:
		s = openapi3.NewStringSchema()
	}
	s.Nullable = col.Nullable
	s.ReadOnly = col.ReadOnly
	return s
}

func entitySchema(t query.Table) *openapi3.Schema {
	s := openapi3.NewObjectSchema()
	required := make([]string, 0, len(t.Columns))
	for _, col := range t.Columns {
		s.WithProperty(col.Name, columnSchema(col))
		required = append(required, col.Name)
	}
	return s.WithRequired(required)
}

func bodySchema(t query.Table, fields []string) *openapi3.Schema {
	s := openapi3.NewObjectSchema()
	for _, name := range fields {
		col, ok := t.Column(name)
		if !ok {
			continue
		}
		cs := columnSchema(col)
		cs.ReadOnly = false
		s.WithProperty(name, cs)
	}
	s.AdditionalProperties = openapi3.AdditionalProperties{Has: new(bool)}
	return s
}

func errorSchema() *openapi3.SchemaRef {
	detail := openapi3.NewObjectSchema().
		WithProperty("code", openapi3.NewStringSchema()).
		WithProperty("message", openapi3.NewStringSchema()).
		WithRequired([]string{"code", "message"})
	return openapi3.NewSchemaRef("", openapi3.NewObjectSchema().
		WithProperty("error", detail).
		WithRequired([]string{"error"}))
}

// --- Ответы и тела ---

func schemaRef(name string) *openapi3.SchemaRef {
	return openapi3.NewSchemaRef("#/components/schemas/"+name, nil)
}

func bodyRef(schema string) *openapi3.RequestBodyRef {
	return &openapi3.RequestBodyRef{Value: openapi3.NewRequestBody().
		WithRequired(true).
		WithJSONSchemaRef(schemaRef(schema))}
}

func entityResponse(schema string) *openapi3.ResponseRef {
	return &openapi3.ResponseRef{Value: openapi3.NewResponse().
		WithDescription("OK").
		WithJSONSchemaRef(schemaRef(schema))}
}

func listResponse(schema string) *openapi3.ResponseRef {
	items := openapi3.NewArraySchema()
	items.Items = schemaRef(schema)
	resp := openapi3.NewResponse().
		WithDescription("OK; X-Total-Count — количество записей без учёта пагинации").
		WithJSONSchema(items)
	return &openapi3.ResponseRef{Value: resp}
}

func errorResponse() *openapi3.ResponseRef {
	return &openapi3.ResponseRef{Value: openapi3.NewResponse().
		WithDescription("Ошибка").
		WithJSONSchemaRef(schemaRef("Error"))}
}
